package tripstore

import (
	"bufio"
	"citibike-scraper/lib/tripdata"
	"context"
	"errors"
	"fmt"
	"os"
)

// Sink persists trips while a walk is still running. Exactly one of Commit
// or Abort is called once the walk is over.
type Sink interface {
	Push(ctx context.Context, trips []tripdata.RawTrip) error
	Commit() error
	Abort() error
}

const PARTIAL_SUFFIX = ".partial"

// FileSink streams trips into <path>.partial and only moves the file to path
// on Commit, so path never holds the result of an incomplete walk.
type FileSink struct {
	Path string

	file   *os.File
	buffer *bufio.Writer
}

func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path + PARTIAL_SUFFIX)
	if err != nil {
		return nil, err
	}
	return &FileSink{
		Path:   path,
		file:   f,
		buffer: bufio.NewWriter(f),
	}, nil
}

func (s *FileSink) PartialPath() string {
	return s.Path + PARTIAL_SUFFIX
}

func (s *FileSink) Push(ctx context.Context, trips []tripdata.RawTrip) error {
	if s.file == nil {
		return fmt.Errorf("push to closed sink %s", s.Path)
	}
	return Write(s.buffer, trips)
}

func (s *FileSink) Commit() error {
	if s.file == nil {
		return fmt.Errorf("commit closed sink %s", s.Path)
	}
	f := s.file
	s.file = nil

	err := s.buffer.Flush()
	if err != nil {
		f.Close()
		return err
	}
	err = f.Close()
	if err != nil {
		return err
	}
	return os.Rename(s.PartialPath(), s.Path)
}

// Abort closes the file and leaves it at PartialPath.
func (s *FileSink) Abort() error {
	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil
	return errors.Join(s.buffer.Flush(), f.Close())
}

// MultiSink fans every call out to all of its sinks.
type MultiSink []Sink

func (m MultiSink) Push(ctx context.Context, trips []tripdata.RawTrip) error {
	for _, sink := range m {
		err := sink.Push(ctx, trips)
		if err != nil {
			return err
		}
	}
	return nil
}

// Commit commits every sink, if one fails the sinks after it are aborted.
func (m MultiSink) Commit() error {
	for i, sink := range m {
		err := sink.Commit()
		if err != nil {
			return errors.Join(err, m[i+1:].Abort())
		}
	}
	return nil
}

func (m MultiSink) Abort() error {
	var errs []error
	for _, sink := range m {
		err := sink.Abort()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
