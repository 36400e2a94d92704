package citibike

import (
	"bytes"
	"citibike-scraper/lib/telemetry"
	"citibike-scraper/lib/tripdata"
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/citibike")

const (
	report_walker_walk = "walker.walk"
	report_walker_row  = "walker.row"

	report_walker_pages   = "walker.pages"
	report_walker_trips   = "walker.trips"
	report_walker_skipped = "walker.skipped"
)

// ExtractionPolicy decides what happens to a trip row that is missing a field.
type ExtractionPolicy int

const (
	// SKIP_ROW drops the row, reports it and keeps going.
	SKIP_ROW ExtractionPolicy = iota
	// ABORT_PAGE stops the walk with the row's *ExtractionError.
	ABORT_PAGE
)

// TripSink receives the trips of every accepted page as soon as the page is read.
type TripSink interface {
	Push(ctx context.Context, trips []tripdata.RawTrip) error
}

type WalkResult struct {
	Trips   []tripdata.RawTrip
	Pages   int
	Skipped int
}

// Walker pages through the trip history of one member.
type Walker struct {
	session   Session
	selectors Selectors
	policy    ExtractionPolicy
	tel       telemetry.API
}

func NewWalker(session Session, selectors Selectors, policy ExtractionPolicy, tel telemetry.API) Walker {
	return Walker{
		session:   session,
		selectors: selectors,
		policy:    policy,
		tel:       telemetry.NewScopedAPI("citibike", tel),
	}
}

// PageUrl returns tripsUrl with the page parameter set to page.
func PageUrl(tripsUrl *url.URL, param string, page int) string {
	pageUrl := *tripsUrl
	query := pageUrl.Query()
	query.Set(param, strconv.Itoa(page))
	pageUrl.RawQuery = query.Encode()
	return pageUrl.String()
}

// Walk fetches page 1, 2, 3... of the trip history. The site answers a page
// number past the end with its last page, so the walk ends at the first page
// whose rendered page number is not the one requested, that page's rows are
// not collected. A fetch error ends the walk immediately.
//
// sink may be nil. The trips collected before an error are returned with it.
func (w Walker) Walk(ctx context.Context, tripsUrl *url.URL, sink TripSink) (WalkResult, error) {
	ctx, span := tracer.Start(ctx, "walker:Walk")
	defer span.End()

	var result WalkResult
	fail := func(err error) (WalkResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	for cursor := 1; ; cursor++ {
		// the only place a walk can be interrupted is between two pages
		err := ctx.Err()
		if err != nil {
			return fail(err)
		}

		page, err := w.fetchPage(ctx, PageUrl(tripsUrl, w.selectors.PageParam, cursor))
		if err != nil {
			w.tel.ReportBroken(report_walker_walk, err, cursor)
			return fail(err)
		}

		last := false
		switch {
		case !page.HasNumber && cursor == 1:
			// no pagination controls, there is only one page
			last = true
		case !page.HasNumber:
			err := &ExtractionError{
				Field:    "page_number",
				Selector: w.selectors.PageNumber,
				Row:      -1,
			}
			w.tel.ReportBroken(report_walker_walk, err, cursor)
			return fail(err)
		case page.Number != cursor:
			w.tel.ReportDebug("reached end of trip history", cursor, page.Number)
			span.SetAttributes(attribute.Int("pages", result.Pages))
			return result, nil
		}

		if len(page.RowErrors) > 0 {
			if w.policy == ABORT_PAGE {
				w.tel.ReportBroken(report_walker_row, page.RowErrors[0], cursor)
				return fail(fmt.Errorf("page %d: %w", cursor, page.RowErrors[0]))
			}
			for _, rowErr := range page.RowErrors {
				w.tel.ReportWarning(report_walker_row, rowErr, cursor)
			}
			result.Skipped += len(page.RowErrors)
			w.tel.ReportCount(report_walker_skipped, int64(result.Skipped))
		}

		if sink != nil && len(page.Trips) > 0 {
			err = sink.Push(ctx, page.Trips)
			if err != nil {
				w.tel.ReportBroken(report_walker_walk, fmt.Errorf("sink: %w", err), cursor)
				return fail(err)
			}
		}
		result.Trips = append(result.Trips, page.Trips...)
		result.Pages++

		w.tel.ReportDebug("fetched page", cursor, len(page.Trips))
		w.tel.ReportCount(report_walker_pages, int64(result.Pages))
		w.tel.ReportCount(report_walker_trips, int64(len(result.Trips)))

		if last {
			span.SetAttributes(attribute.Int("pages", result.Pages))
			return result, nil
		}
	}
}

func (w Walker) fetchPage(ctx context.Context, pageUrl string) (Page, error) {
	ctx, span := tracer.Start(ctx, "walker:fetchPage")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageUrl))

	body, err := w.session.Open(ctx, pageUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return Page{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return Page{}, fmt.Errorf("parse %s: %w", pageUrl, err)
	}

	page, err := ExtractPage(doc.Selection, w.selectors)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract page")
		return Page{}, err
	}
	span.SetAttributes(
		attribute.Int("page_number", page.Number),
		attribute.Int("trips", len(page.Trips)),
	)
	return page, nil
}
