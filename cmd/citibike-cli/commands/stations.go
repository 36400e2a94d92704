package commands

import (
	"citibike-scraper/lib/serviceutil"
	"citibike-scraper/lib/tripdata"
	"citibike-scraper/lib/tripstore"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var stationsTop *int

func init() {
	stationsTop = stationsCmd.Flags().Int("top", 10, "The number of stations to list, 0 lists all of them.")
	rootCmd.AddCommand(stationsCmd)
}

type stationCount struct {
	Name   string
	Starts int
	Ends   int
}

func (s stationCount) Total() int {
	return s.Starts + s.Ends
}

// countStations counts the trips started and ended at every station, busiest
// first with ties broken by name.
func countStations(trips []tripdata.RawTrip) []stationCount {
	counts := map[string]*stationCount{}
	get := func(name string) *stationCount {
		count, ok := counts[name]
		if !ok {
			count = &stationCount{Name: name}
			counts[name] = count
		}
		return count
	}
	for _, t := range trips {
		get(t.StartStation).Starts++
		get(t.EndStation).Ends++
	}

	out := make([]stationCount, 0, len(counts))
	for _, count := range counts {
		out = append(out, *count)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total() != out[j].Total() {
			return out[i].Total() > out[j].Total()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func renderStations(out io.Writer, counts []stationCount, top int) {
	if top > 0 && top < len(counts) {
		counts = counts[:top]
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"Station", "Starts", "Ends", "Total"})
	for _, c := range counts {
		t.AppendRow(table.Row{c.Name, c.Starts, c.Ends, c.Total()})
	}
	t.Render()
}

var stationsCmd = &cobra.Command{
	Use:   "stations FILE [--top N]",
	Short: "Lists the stations a scrape output file visits most.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		trips, err := tripstore.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read trips", err)
		}
		renderStations(os.Stdout, countStations(trips), *stationsTop)
	},
}
