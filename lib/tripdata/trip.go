package tripdata

import (
	"errors"
	"fmt"
	"time"
)

// Optional is a value that may be missing from the source data.
type Optional[T any] struct {
	Value T
	Valid bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{Value: value, Valid: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// RawTrip is a trip exactly as it was scraped, every field is the trimmed
// text of the corresponding element on the trip history page.
type RawTrip struct {
	StartTime    string
	EndTime      string
	StartStation string
	EndStation   string
	Duration     string
}

const FIELD_COUNT = 5

// Fields returns the fields of the trip in the order they are persisted.
func (t RawTrip) Fields() []string {
	return []string{
		t.StartTime,
		t.EndTime,
		t.StartStation,
		t.EndStation,
		t.Duration,
	}
}

func RawTripFromFields(fields []string) (RawTrip, error) {
	if len(fields) != FIELD_COUNT {
		return RawTrip{}, fmt.Errorf("expected %d trip fields, got %d", FIELD_COUNT, len(fields))
	}
	return RawTrip{
		StartTime:    fields[0],
		EndTime:      fields[1],
		StartStation: fields[2],
		EndStation:   fields[3],
		Duration:     fields[4],
	}, nil
}

// Trip is the typed view of a RawTrip.
//
// StartTime and EndTime are absent when the text did not match the site's
// timestamp layout. Duration is absent when the site did not record a
// duration for the trip.
type Trip struct {
	StartTime    Optional[time.Time]
	EndTime      Optional[time.Time]
	StartStation string
	EndStation   string
	Duration     Optional[time.Duration]
}

// RecordError is a conversion failure of a single record within a batch.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Err.Error())
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func ToTyped(raw RawTrip, loc *time.Location) (Trip, error) {
	duration, err := ParseDuration(raw.Duration)
	if err != nil {
		return Trip{}, err
	}
	return Trip{
		StartTime:    ParseTimestamp(raw.StartTime, loc),
		EndTime:      ParseTimestamp(raw.EndTime, loc),
		StartStation: raw.StartStation,
		EndStation:   raw.EndStation,
		Duration:     duration,
	}, nil
}

// ToTypedAll converts every record it can. Records with a malformed duration
// are left out of the result and reported as a *RecordError in the joined
// error, the remaining records are unaffected.
func ToTypedAll(raws []RawTrip, loc *time.Location) ([]Trip, error) {
	trips := make([]Trip, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		trip, err := ToTyped(raw, loc)
		if err != nil {
			errs = append(errs, &RecordError{Index: i, Err: err})
			continue
		}
		trips = append(trips, trip)
	}
	return trips, errors.Join(errs...)
}
