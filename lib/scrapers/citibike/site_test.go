package citibike

import (
	"fmt"
	"strings"
)

type testRow struct {
	start, end, from, to, duration string
}

func rowHtml(r testRow) string {
	var b strings.Builder
	b.WriteString(`<div class="ed-table__item ed-table__item_trip">`)
	if r.start != "" {
		fmt.Fprintf(&b, `<div class="ed-table__item__info__sub-info ed-table__item__info__sub-info_trip-start-date">%s</div>`, r.start)
	}
	if r.end != "" {
		fmt.Fprintf(&b, `<div class="ed-table__item__info__sub-info ed-table__item__info__sub-info_trip-end-date">%s</div>`, r.end)
	}
	if r.from != "" {
		fmt.Fprintf(&b, `<div class="ed-table__item__info__sub-info_trip-start-station">
			%s
		</div>`, r.from)
	}
	if r.to != "" {
		fmt.Fprintf(&b, `<div class="ed-table__item__info__sub-info_trip-end-station">%s</div>`, r.to)
	}
	if r.duration != "" {
		fmt.Fprintf(&b, `<div class="ed-table__col ed-table__col_trip-duration"> %s </div>`, r.duration)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// tripsPageHtml renders a trip history page, pageNumber < 0 leaves out the
// pagination controls.
func tripsPageHtml(pageNumber int, rows []testRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="ed-table">`)
	for _, r := range rows {
		b.WriteString(rowHtml(r))
	}
	b.WriteString(`</div>`)
	if pageNumber >= 0 {
		fmt.Fprintf(
			&b,
			`<form class="ed-paginated-navigation__jump-to"><input type="text" class="ed-paginated-navigation__jump-to__page" value="%d"></form>`,
			pageNumber,
		)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// rowsForPage returns two distinguishable rows for page n.
func rowsForPage(n int) []testRow {
	rows := make([]testRow, 2)
	for i := range rows {
		rows[i] = testRow{
			start:    "05/21/2017 08:14:32 PM",
			end:      "05/21/2017 08:20:02 PM",
			from:     fmt.Sprintf("Station %d-%d", n, i),
			to:       "Broadway & E 14 St",
			duration: "5 min 30 s",
		}
	}
	return rows
}
