package citibike

import (
	"errors"
	"fmt"
)

// ErrAuthentication is returned when the site rejects the login.
var ErrAuthentication = errors.New("citibike: login rejected, check your username and password")

// FetchError is a failed page request, either the transport failed or the
// server answered with an error status.
type FetchError struct {
	Url    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s", e.Url, e.Err.Error())
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.Url, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExtractionError means an expected element is missing from a page, Row is
// the index of the trip row on its page or -1 for page level elements.
type ExtractionError struct {
	Field    string
	Selector string
	Row      int
	Err      error
}

func (e *ExtractionError) Error() string {
	location := "page"
	if e.Row >= 0 {
		location = fmt.Sprintf("row %d", e.Row)
	}
	msg := fmt.Sprintf("extract %s (%s) from %s", e.Field, e.Selector, location)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg + ": element not found"
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
