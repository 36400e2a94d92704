package citibike

import (
	"citibike-scraper/lib/tripdata"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseHtml(t testing.TB, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractTrip(t *testing.T) {
	doc := parseHtml(t, rowHtml(testRow{
		start:    "05/21/2017 08:14:32 PM",
		end:      "05/21/2017 08:20:02 PM",
		from:     "W 21 St &amp; 6 Ave",
		to:       "Broadway &amp; E 14 St",
		duration: "5 min 30 s",
	}))

	trip, err := ExtractTrip(doc.Find("div.ed-table__item_trip"), DefaultSelectors())
	require.NoError(t, err)
	require.Equal(t, tripdata.RawTrip{
		StartTime:    "05/21/2017 08:14:32 PM",
		EndTime:      "05/21/2017 08:20:02 PM",
		StartStation: "W 21 St & 6 Ave",
		EndStation:   "Broadway & E 14 St",
		Duration:     "5 min 30 s",
	}, trip)
}

func TestExtractTripMissingField(t *testing.T) {
	doc := parseHtml(t, rowHtml(testRow{
		start: "05/21/2017 08:14:32 PM",
		end:   "05/21/2017 08:20:02 PM",
		from:  "W 21 St & 6 Ave",
		to:    "Broadway & E 14 St",
	}))

	trip, err := ExtractTrip(doc.Find("div.ed-table__item_trip"), DefaultSelectors())
	require.Equal(t, tripdata.RawTrip{}, trip)

	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
	require.Equal(t, "duration", extractErr.Field)
	require.Equal(t, DefaultSelectors().Duration, extractErr.Selector)
}

func TestExtractPage(t *testing.T) {
	good := rowsForPage(4)
	rows := []testRow{good[0], {from: "broken"}, good[1]}
	doc := parseHtml(t, tripsPageHtml(4, rows))

	page, err := ExtractPage(doc.Selection, DefaultSelectors())
	require.NoError(t, err)
	require.True(t, page.HasNumber)
	require.Equal(t, 4, page.Number)
	require.Len(t, page.Trips, 2)
	require.Equal(t, "Station 4-0", page.Trips[0].StartStation)
	require.Equal(t, "Station 4-1", page.Trips[1].StartStation)

	require.Len(t, page.RowErrors, 1)
	var extractErr *ExtractionError
	require.True(t, errors.As(page.RowErrors[0], &extractErr))
	require.Equal(t, 1, extractErr.Row)
	require.Equal(t, "start_time", extractErr.Field)
}

func TestExtractPageWithoutNavigation(t *testing.T) {
	doc := parseHtml(t, tripsPageHtml(-1, rowsForPage(1)))

	page, err := ExtractPage(doc.Selection, DefaultSelectors())
	require.NoError(t, err)
	require.False(t, page.HasNumber)
	require.Len(t, page.Trips, 2)
}

func TestExtractPageBadNumber(t *testing.T) {
	doc := parseHtml(t, `<input class="ed-paginated-navigation__jump-to__page" value="two">`)

	_, err := ExtractPage(doc.Selection, DefaultSelectors())
	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
	require.Equal(t, "page_number", extractErr.Field)
}

func TestSelectorsValidate(t *testing.T) {
	require.NoError(t, DefaultSelectors().Validate())

	broken := DefaultSelectors()
	broken.TripRow = "div[["
	require.Error(t, broken.Validate())

	empty := DefaultSelectors()
	empty.Duration = ""
	require.Error(t, empty.Validate())

	noParam := DefaultSelectors()
	noParam.PageParam = ""
	require.Error(t, noParam.Validate())
}
