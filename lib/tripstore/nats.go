package tripstore

import (
	"citibike-scraper/lib/tripdata"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// Publisher is the part of *nats.Conn the sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
}

type TripMessage struct {
	RunId        string `json:"runId"`
	Seq          int    `json:"seq"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	StartStation string `json:"startStation"`
	EndStation   string `json:"endStation"`
	Duration     string `json:"duration"`
}

type RunMessage struct {
	RunId  string `json:"runId"`
	Trips  int    `json:"trips"`
	Status string `json:"status"`
}

const (
	RUN_COMMITTED = "committed"
	RUN_ABORTED   = "aborted"
)

// ConnectNats opens a connection to the nats server at url.
func ConnectNats(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("citibike-scraper"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats reconnected")
		}),
	)
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_", ":", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}

// NatsSink publishes every trip of a run to <prefix>.<run>.trips as it is
// pushed and a RunMessage to <prefix>.<run>.status once the run is over.
// Published trips cannot be taken back, consumers must wait for the
// status message before trusting a run.
type NatsSink struct {
	RunId string

	conn   Publisher
	prefix string
	seq    int
	done   bool
}

func NewNatsSink(conn Publisher, prefix, runId string) *NatsSink {
	return &NatsSink{
		RunId:  runId,
		conn:   conn,
		prefix: prefix,
	}
}

func (s *NatsSink) subject(kind string) string {
	return fmt.Sprintf("%s.%s.%s", s.prefix, subjectToken(s.RunId), kind)
}

func (s *NatsSink) Push(ctx context.Context, trips []tripdata.RawTrip) error {
	if s.done {
		return fmt.Errorf("push to closed sink %s", s.RunId)
	}
	subject := s.subject("trips")
	for _, t := range trips {
		body, err := json.Marshal(TripMessage{
			RunId:        s.RunId,
			Seq:          s.seq,
			StartTime:    t.StartTime,
			EndTime:      t.EndTime,
			StartStation: t.StartStation,
			EndStation:   t.EndStation,
			Duration:     t.Duration,
		})
		if err != nil {
			return err
		}
		err = s.conn.Publish(subject, body)
		if err != nil {
			return fmt.Errorf("publish trip %d: %w", s.seq, err)
		}
		s.seq++
	}
	return nil
}

func (s *NatsSink) finish(status string) error {
	s.done = true
	body, err := json.Marshal(RunMessage{
		RunId:  s.RunId,
		Trips:  s.seq,
		Status: status,
	})
	if err != nil {
		return err
	}
	err = s.conn.Publish(s.subject("status"), body)
	if err != nil {
		return err
	}
	return s.conn.Flush()
}

func (s *NatsSink) Commit() error {
	if s.done {
		return fmt.Errorf("commit closed sink %s", s.RunId)
	}
	return s.finish(RUN_COMMITTED)
}

func (s *NatsSink) Abort() error {
	if s.done {
		return nil
	}
	return s.finish(RUN_ABORTED)
}
