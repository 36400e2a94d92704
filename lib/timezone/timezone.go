package timezone

import (
	"time"
	_ "time/tzdata"
)

const DEFAULT_LOCATION = "America/New_York"

// Location is where the trip history site reports its timestamps.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation(DEFAULT_LOCATION)
	if err != nil {
		panic(err)
	}
}

// Load returns the named location, or Location if name is empty.
func Load(name string) (*time.Location, error) {
	if name == "" {
		return Location, nil
	}
	return time.LoadLocation(name)
}

// Now is the current time in the site's time zone.
func Now() time.Time {
	return time.Now().In(Location)
}

const FILE_STAMP_LAYOUT = "2006-01-02_15:04:05"

// FileStamp formats t for use inside an output filename.
func FileStamp(t time.Time) string {
	return t.Format(FILE_STAMP_LAYOUT)
}
