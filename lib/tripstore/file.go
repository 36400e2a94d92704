package tripstore

import (
	"citibike-scraper/lib/tripdata"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DELIMITER separates the fields of a record. Fields that contain it, a
// quote or a line break are wrapped in double quotes with inner quotes
// doubled.
const DELIMITER = ' '

func newWriter(w io.Writer) *csv.Writer {
	writer := csv.NewWriter(w)
	writer.Comma = DELIMITER
	return writer
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = DELIMITER
	reader.FieldsPerRecord = tripdata.FIELD_COUNT
	return reader
}

// ErrCRLF is returned by Write for a field containing "\r\n", the reader
// turns it into "\n" inside quoted fields so it cannot be read back as is.
var ErrCRLF = errors.New("field contains \\r\\n")

// Write writes one line per trip in order. Nothing is written if any trip
// has a field that would not read back unchanged.
func Write(w io.Writer, trips []tripdata.RawTrip) error {
	for i, trip := range trips {
		for _, field := range trip.Fields() {
			if strings.Contains(field, "\r\n") {
				return fmt.Errorf("trip %d: %w", i, ErrCRLF)
			}
		}
	}

	writer := newWriter(w)
	for _, trip := range trips {
		err := writer.Write(trip.Fields())
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Read reads every record from r, a line without exactly five fields is an
// error.
func Read(r io.Reader) ([]tripdata.RawTrip, error) {
	reader := newReader(r)

	var trips []tripdata.RawTrip
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return trips, nil
		}
		if err != nil {
			return nil, err
		}
		trip, err := tripdata.RawTripFromFields(fields)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trips = append(trips, trip)
	}
}

func WriteFile(path string, trips []tripdata.RawTrip) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = Write(f, trips)
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func ReadFile(path string) ([]tripdata.RawTrip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	trips, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return trips, nil
}
