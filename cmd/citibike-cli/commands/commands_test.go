package commands

import (
	"bytes"
	"citibike-scraper/lib/scrapers/citibike"
	"citibike-scraper/lib/tripdata"
	"citibike-scraper/lib/tripstore"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func chdir(t testing.TB, dir string) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(cwd)
	})
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	unsetenv(t, "CITIBIKE_USERNAME")
	unsetenv(t, "CITIBIKE_PASSWORD")
	unsetenv(t, "CITIBIKE_DATABASE")

	cfg, err := loadConfig()
	require.NoError(t, err)
	if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
		t.Fatal(diff)
	}
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CITIBIKE_USERNAME", "env-user")
	unsetenv(t, "CITIBIKE_PASSWORD")
	unsetenv(t, "CITIBIKE_DATABASE")

	err := os.WriteFile(filepath.Join(dir, CONFIG_FILE), []byte(`{
		// comments are allowed
		username: "file-user",
		password: "file-password",
		selectors: { trip_row: "div.trip" },
		http: { timeout_seconds: 5 },
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "citibike.local.json5"), []byte(`{
		http: { disable_cloudflare_bypass: true },
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, ".env"), []byte("CITIBIKE_DATABASE=trips.db\n"), 0600)
	require.NoError(t, err)

	cfg, err := loadConfig()
	require.NoError(t, err)

	require.Equal(t, "env-user", cfg.Username)
	require.Equal(t, "file-password", cfg.Password)
	require.Equal(t, "trips.db", cfg.Database)
	require.Equal(t, "div.trip", cfg.Selectors.TripRow)
	require.Equal(t, citibike.DefaultSelectors().StartTime, cfg.Selectors.StartTime)

	opts := cfg.clientOptions()
	require.Equal(t, citibike.DEFAULT_BASE_URL, opts.BaseUrl)
	require.Equal(t, 5*time.Second, opts.Timeout)
	require.False(t, opts.CloudflareBypass)
}

func TestLoadConfigInvalidSelector(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	err := os.WriteFile(filepath.Join(dir, CONFIG_FILE), []byte(`{selectors: {trip_row: "div["}}`), 0600)
	require.NoError(t, err)

	_, err = loadConfig()
	require.Error(t, err)
}

func TestDefaultOutputPath(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)
	require.Equal(
		t,
		"citibike_scrape_rider2024-03-09_07:05:02.csv",
		defaultOutputPath("rider", now),
	)
}

func TestScrapeStampUsesConfiguredTimezone(t *testing.T) {
	started, err := Config{Timezone: "Asia/Tokyo"}.now()
	require.NoError(t, err)
	require.Equal(t, "Asia/Tokyo", started.Location().String())

	stamp := started.Format("2006-01-02_15:04:05")
	require.Equal(t, "citibike_scrape_rider"+stamp+".csv", defaultOutputPath("rider", started))
	require.Equal(t, "rider-"+stamp, runId("rider", started))

	_, err = Config{Timezone: "Not/AZone"}.now()
	require.Error(t, err)
}

func TestCredentials(t *testing.T) {
	var out bytes.Buffer
	username, password, err := credentials(
		Config{},
		strings.NewReader("rider@example.com\nhunter2\n"),
		&out,
	)
	require.NoError(t, err)
	require.Equal(t, "rider@example.com", username)
	require.Equal(t, "hunter2", password)
	require.Equal(t, "Username: Password: ", out.String())

	out.Reset()
	username, password, err = credentials(
		Config{Username: "configured"},
		strings.NewReader("secret"),
		&out,
	)
	require.NoError(t, err)
	require.Equal(t, "configured", username)
	require.Equal(t, "secret", password)
	require.Equal(t, "Password: ", out.String())

	_, _, err = credentials(Config{}, strings.NewReader(""), &out)
	require.Error(t, err)
}

func typedTrip(from, to string, minutes int) tripdata.Trip {
	return tripdata.Trip{
		StartStation: from,
		EndStation:   to,
		Duration:     tripdata.Some(time.Duration(minutes) * time.Minute),
	}
}

func TestFilterByStation(t *testing.T) {
	trips := []tripdata.Trip{
		typedTrip("W 21 St & 6 Ave", "Broadway & E 14 St", 10),
		typedTrip("Pier 40 - Hudson River Park", "W 21 St & 6 Ave", 20),
		typedTrip("Broadway & E 14 St", "Pier 40 - Hudson River Park", 30),
	}

	require.Equal(t, trips, filterByStation(trips, ""))
	require.Equal(t, trips[:2], filterByStation(trips, "w 21 st & 6 av"))
	require.Empty(t, filterByStation(trips, "Atlantic Ave & Fort Greene Pl"))
}

func TestRenderTrips(t *testing.T) {
	start := time.Date(2023, 1, 15, 8, 30, 0, 0, time.UTC)
	trips := []tripdata.Trip{
		typedTrip("A", "B", 10),
		{
			StartTime:    tripdata.Some(start),
			StartStation: "B",
			EndStation:   "C",
		},
	}

	var out bytes.Buffer
	renderTrips(&out, trips)
	require.Contains(t, out.String(), "2023-01-15 08:30:00")
	require.Contains(t, strings.ToLower(out.String()), "2 trips")
	require.Contains(t, out.String(), "10m0s")
}

func TestCountStations(t *testing.T) {
	trips := []tripdata.RawTrip{
		{StartStation: "A", EndStation: "B"},
		{StartStation: "B", EndStation: "A"},
		{StartStation: "C", EndStation: "A"},
	}
	counts := countStations(trips)
	require.Equal(t, []stationCount{
		{Name: "A", Starts: 1, Ends: 2},
		{Name: "B", Starts: 1, Ends: 1},
		{Name: "C", Starts: 1, Ends: 0},
	}, counts)

	var out bytes.Buffer
	renderStations(&out, counts, 1)
	require.Contains(t, out.String(), "A")
	require.NotContains(t, out.String(), "C")
}

func TestStationsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.csv")
	err := tripstore.WriteFile(path, []tripdata.RawTrip{
		{StartStation: "W 21 St & 6 Ave", EndStation: "Broadway & E 14 St"},
	})
	require.NoError(t, err)

	trips, err := tripstore.ReadFile(path)
	require.NoError(t, err)
	counts := countStations(trips)
	require.Len(t, counts, 2)
	require.Equal(t, "Broadway & E 14 St", counts[0].Name)
}
