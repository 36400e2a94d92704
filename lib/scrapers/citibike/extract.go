package citibike

import (
	"citibike-scraper/lib/htmlutil"
	"citibike-scraper/lib/tripdata"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractTrip reads one trip row. If any of the fields is missing an
// *ExtractionError is returned and nothing else.
func ExtractTrip(row *goquery.Selection, sel Selectors) (tripdata.RawTrip, error) {
	fields := sel.tripFields()
	values := make([]string, len(fields))
	for i, f := range fields {
		text, ok := htmlutil.Text(row.Find(f.selector))
		if !ok {
			return tripdata.RawTrip{}, &ExtractionError{
				Field:    f.name,
				Selector: f.selector,
				Row:      -1,
			}
		}
		values[i] = text
	}
	return tripdata.RawTripFromFields(values)
}

// Page is everything read from one trip history page.
type Page struct {
	// the page number the server says it rendered, only meaningful if HasNumber
	Number    int
	HasNumber bool

	Trips []tripdata.RawTrip
	// one *ExtractionError per row that could not be read, those rows are
	// not in Trips
	RowErrors []error
}

func ExtractPage(doc *goquery.Selection, sel Selectors) (Page, error) {
	var page Page

	numberInput := doc.Find(sel.PageNumber).First()
	if numberInput.Length() > 0 {
		value := strings.TrimSpace(numberInput.AttrOr("value", ""))
		number, err := strconv.Atoi(value)
		if err != nil {
			return Page{}, &ExtractionError{
				Field:    "page_number",
				Selector: sel.PageNumber,
				Row:      -1,
				Err:      fmt.Errorf("parse value %q: %w", value, err),
			}
		}
		page.Number = number
		page.HasNumber = true
	}

	doc.Find(sel.TripRow).Each(func(i int, row *goquery.Selection) {
		trip, err := ExtractTrip(row, sel)
		if err != nil {
			if extractErr, ok := err.(*ExtractionError); ok {
				extractErr.Row = i
			}
			page.RowErrors = append(page.RowErrors, err)
			return
		}
		page.Trips = append(page.Trips, trip)
	})

	return page, nil
}
