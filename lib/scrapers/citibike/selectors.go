package citibike

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Selectors is everything that ties the scraper to the markup of the member
// site. A change in the markup should only require a change in here.
type Selectors struct {
	// the form on the login page that takes the username and password
	LoginForm     string `json:"login_form"`
	UsernameField string `json:"username_field"`
	PasswordField string `json:"password_field"`

	// the anchor on the profile page that links to the trip history
	TripsLink string `json:"trips_link"`
	// the query parameter of the trip history url holding the page number
	PageParam string `json:"page_param"`
	// the input holding the page number the server actually rendered
	PageNumber string `json:"page_number"`

	TripRow      string `json:"trip_row"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	StartStation string `json:"start_station"`
	EndStation   string `json:"end_station"`
	Duration     string `json:"duration"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		LoginForm:     `form:has(input[name="_username"])`,
		UsernameField: "_username",
		PasswordField: "_password",

		TripsLink:  "a.ed-panel__link.ed-panel__link_summary.ed-panel__link_last-trip",
		PageParam:  "pageNumber",
		PageNumber: "input.ed-paginated-navigation__jump-to__page",

		TripRow:      "div.ed-table__item_trip",
		StartTime:    "div.ed-table__item__info__sub-info_trip-start-date",
		EndTime:      "div.ed-table__item__info__sub-info_trip-end-date",
		StartStation: "div.ed-table__item__info__sub-info_trip-start-station",
		EndStation:   "div.ed-table__item__info__sub-info_trip-end-station",
		Duration:     "div.ed-table__col_trip-duration",
	}
}

type tripField struct {
	name     string
	selector string
}

// tripFields lists the row selectors in the order of tripdata.RawTrip.Fields.
func (s Selectors) tripFields() []tripField {
	return []tripField{
		{name: "start_time", selector: s.StartTime},
		{name: "end_time", selector: s.EndTime},
		{name: "start_station", selector: s.StartStation},
		{name: "end_station", selector: s.EndStation},
		{name: "duration", selector: s.Duration},
	}
}

// Validate checks that every selector is set and compiles.
func (s Selectors) Validate() error {
	selectors := append([]tripField{
		{name: "login_form", selector: s.LoginForm},
		{name: "trips_link", selector: s.TripsLink},
		{name: "page_number", selector: s.PageNumber},
		{name: "trip_row", selector: s.TripRow},
	}, s.tripFields()...)

	for _, f := range selectors {
		if f.selector == "" {
			return fmt.Errorf("selector %s is empty", f.name)
		}
		_, err := cascadia.Compile(f.selector)
		if err != nil {
			return fmt.Errorf("selector %s (%q): %w", f.name, f.selector, err)
		}
	}

	if s.UsernameField == "" || s.PasswordField == "" {
		return fmt.Errorf("username and password field names must be set")
	}
	if s.PageParam == "" {
		return fmt.Errorf("page_param must be set")
	}
	return nil
}
