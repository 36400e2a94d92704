package tripdata

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const TIMESTAMP_LAYOUT = "01/02/2006 03:04:05 PM"

// ParseError is returned when a duration has a minutes marker but does not
// follow the `[<h> h ]<m> min <s> s` layout.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse duration %q: %s", e.Text, e.Reason)
}

const minutesMarker = "min"

var durationRegex = regexp.MustCompile(`^(?:(\d+)\s*h\s+)?(\d+)\s*min\s+(\d+)\s*s$`)

// ParseDuration converts text like "1 h 5 min 0 s" into a duration.
// Text without a minutes marker means the site has no recorded duration
// and yields an absent value.
func ParseDuration(text string) (Optional[time.Duration], error) {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, minutesMarker) {
		return None[time.Duration](), nil
	}

	groups := durationRegex.FindStringSubmatch(text)
	if groups == nil {
		return None[time.Duration](), &ParseError{
			Text:   text,
			Reason: "expected [<hours> h ]<minutes> min <seconds> s",
		}
	}

	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, unit := range units {
		part := groups[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return None[time.Duration](), &ParseError{Text: text, Reason: err.Error()}
		}
		if n > math.MaxInt64/int64(unit) || time.Duration(n)*unit > math.MaxInt64-total {
			return None[time.Duration](), &ParseError{Text: text, Reason: "duration out of range"}
		}
		total += time.Duration(n) * unit
	}
	return Some(total), nil
}

// ParseTimestamp parses text like "05/21/2017 08:14:32 PM" in the given
// location. It never fails, text that does not fit the layout is absent.
func ParseTimestamp(text string, loc *time.Location) Optional[time.Time] {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(TIMESTAMP_LAYOUT, strings.TrimSpace(text), loc)
	if err != nil {
		return None[time.Time]()
	}
	return Some(parsed)
}
