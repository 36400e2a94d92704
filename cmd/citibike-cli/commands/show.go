package commands

import (
	"citibike-scraper/lib/serviceutil"
	"citibike-scraper/lib/tripdata"
	"citibike-scraper/lib/tripstore"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const STATION_MATCH_THRESHOLD = 0.9

var showStation *string

func init() {
	showStation = showCmd.Flags().String("station", "", "Only show trips that start or end at a station with a name like this one.")
	rootCmd.AddCommand(showCmd)
}

func stationMatches(station, query string) bool {
	similarity := matchr.JaroWinkler(
		strings.ToLower(station),
		strings.ToLower(query),
		false,
	)
	return similarity >= STATION_MATCH_THRESHOLD
}

func filterByStation(trips []tripdata.Trip, query string) []tripdata.Trip {
	if query == "" {
		return trips
	}
	var out []tripdata.Trip
	for _, t := range trips {
		if stationMatches(t.StartStation, query) || stationMatches(t.EndStation, query) {
			out = append(out, t)
		}
	}
	return out
}

const SHOW_TIME_LAYOUT = "2006-01-02 15:04:05"

func formatTime(t tripdata.Optional[time.Time]) string {
	value, ok := t.Get()
	if !ok {
		return "-"
	}
	return value.Format(SHOW_TIME_LAYOUT)
}

func formatDuration(d tripdata.Optional[time.Duration]) string {
	value, ok := d.Get()
	if !ok {
		return "-"
	}
	return value.String()
}

// reportRecordErrors logs every record of a joined conversion error.
func reportRecordErrors(err error) {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		slog.Warn("skipped trip", "err", err)
		return
	}
	for _, e := range joined.Unwrap() {
		var recordErr *tripdata.RecordError
		if errors.As(e, &recordErr) {
			slog.Warn("skipped trip", "record", recordErr.Index, "err", recordErr.Err)
			continue
		}
		slog.Warn("skipped trip", "err", e)
	}
}

func renderTrips(out io.Writer, trips []tripdata.Trip) {
	var total time.Duration
	t := newTable(out)
	t.AppendHeader(table.Row{"Start", "End", "From", "To", "Duration"})
	for _, trip := range trips {
		t.AppendRow(table.Row{
			formatTime(trip.StartTime),
			formatTime(trip.EndTime),
			trip.StartStation,
			trip.EndStation,
			formatDuration(trip.Duration),
		})
		if d, ok := trip.Duration.Get(); ok {
			total += d
		}
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d trips", len(trips)), total.String()})
	t.Render()
}

var showCmd = &cobra.Command{
	Use:   "show FILE [--station NAME]",
	Short: "Prints the trips of a scrape output file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raws, err := tripstore.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read trips", err)
		}
		loc, err := cfg.location()
		if err != nil {
			serviceutil.Fatal("failed to load time zone", err)
		}

		trips, err := tripdata.ToTypedAll(raws, loc)
		if err != nil {
			reportRecordErrors(err)
		}
		renderTrips(os.Stdout, filterByStation(trips, *showStation))
	},
}
