package commands

import (
	"citibike-scraper/lib/restyutil"
	"citibike-scraper/lib/scrapers/citibike"
	"citibike-scraper/lib/serviceutil"
	"citibike-scraper/lib/telemetry"
	"citibike-scraper/lib/timezone"
	"citibike-scraper/lib/tripstore"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	scrapeOut     *string
	scrapeDb      *string
	scrapeNats    *string
	scrapeDumpDir *string
	scrapeStrict  *bool
)

func init() {
	scrapeOut = scrapeCmd.Flags().String("out", "", "The file to write the trips to, defaults to citibike_scrape_<username><time>.csv.")
	scrapeDb = scrapeCmd.Flags().String("db", "", "A database to also write the trips to (sqlite path, libsql or postgres url).")
	scrapeNats = scrapeCmd.Flags().String("nats", "", "A nats server to also publish the trips to.")
	scrapeDumpDir = scrapeCmd.Flags().String("dump-dir", "", "Write every http exchange to this directory.")
	scrapeStrict = scrapeCmd.Flags().Bool("strict", false, "Fail on the first trip row that cannot be read instead of skipping it.")
	rootCmd.AddCommand(scrapeCmd)
}

func defaultOutputPath(username string, now time.Time) string {
	return fmt.Sprintf("citibike_scrape_%s%s.csv", username, timezone.FileStamp(now))
}

func runId(username string, started time.Time) string {
	return fmt.Sprintf("%s-%s", username, timezone.FileStamp(started))
}

func createClient(ctx context.Context, username, password string) *citibike.Client {
	opts := cfg.clientOptions()
	if *scrapeDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(*scrapeDumpDir)
		if err != nil {
			serviceutil.Fatal("failed to create dump directory", err)
		}
		opts.Dump = output
	}

	client, err := citibike.NewClient(opts, telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("failed to initialize client", err)
	}

	err = client.Login(ctx, username, password)
	if errors.Is(err, citibike.ErrAuthentication) {
		serviceutil.Fatal("the site did not accept the username and password", err)
	}
	if err != nil {
		serviceutil.Fatal("failed to login", err)
	}
	return client
}

type sinkTargets struct {
	out     string
	dsn     string
	natsUrl string
	runId   string
}

// openSinks opens every configured sink, the returned func releases their
// connections once the sinks are committed or aborted.
func openSinks(ctx context.Context, targets sinkTargets) (tripstore.MultiSink, func()) {
	var closers []func()
	release := func() {
		for _, c := range closers {
			c()
		}
	}
	var sinks tripstore.MultiSink
	fail := func(message string, err error) {
		sinks.Abort()
		release()
		serviceutil.Fatal(message, err)
	}

	fileSink, err := tripstore.NewFileSink(targets.out)
	if err != nil {
		fail("failed to create output file", err)
	}
	sinks = append(sinks, fileSink)

	if targets.dsn != "" {
		store, err := tripstore.OpenStore(ctx, targets.dsn)
		if err != nil {
			fail("failed to open database", err)
		}
		closers = append(closers, func() { store.Close() })
		dbSink, err := store.NewSink(ctx, targets.runId)
		if err != nil {
			fail("failed to start database transaction", err)
		}
		sinks = append(sinks, dbSink)
	}

	if targets.natsUrl != "" {
		conn, err := tripstore.ConnectNats(targets.natsUrl)
		if err != nil {
			fail("failed to connect to nats", err)
		}
		closers = append(closers, func() {
			conn.Drain()
			conn.Close()
		})
		sinks = append(sinks, tripstore.NewNatsSink(conn, cfg.Nats.Subject, targets.runId))
	}

	return sinks, release
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--out FILE] [--db DSN] [--nats URL] [--dump-dir DIR] [--strict]",
	Short: "Logs in to the member site and writes the whole trip history to a file.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		username, password, err := credentials(cfg, os.Stdin, os.Stderr)
		if err != nil {
			serviceutil.Fatal("failed to read credentials", err)
		}

		slog.Info("scraping using user", "username", username)
		client := createClient(ctx, username, password)

		tripsUrl, err := client.TripsUrl(ctx)
		if err != nil {
			serviceutil.Fatal("failed to find trip history", err)
		}

		started, err := cfg.now()
		if err != nil {
			serviceutil.Fatal("failed to load time zone", err)
		}
		out := *scrapeOut
		if out == "" {
			out = defaultOutputPath(username, started)
		}
		targets := sinkTargets{
			out:     out,
			dsn:     cfg.Database,
			natsUrl: cfg.Nats.Url,
			runId:   runId(username, started),
		}
		if *scrapeDb != "" {
			targets.dsn = *scrapeDb
		}
		if *scrapeNats != "" {
			targets.natsUrl = *scrapeNats
		}
		sinks, release := openSinks(ctx, targets)
		defer release()

		policy := citibike.SKIP_ROW
		if *scrapeStrict {
			policy = citibike.ABORT_PAGE
		}
		walker := citibike.NewWalker(client, cfg.Selectors, policy, telemetry.SlogAPI{})

		t1 := time.Now()
		result, err := walker.Walk(ctx, tripsUrl, sinks)
		if err != nil {
			abortErr := sinks.Abort()
			if abortErr != nil {
				slog.Warn("failed to clean up partial output", "err", abortErr)
			}
			slog.Warn(
				"partial results kept",
				"file", out+tripstore.PARTIAL_SUFFIX,
				"trips", len(result.Trips),
				"pages", result.Pages,
			)
			release()
			serviceutil.Fatal("failed to scrape trip history", err)
		}
		err = sinks.Commit()
		if err != nil {
			release()
			serviceutil.Fatal("failed to save trips", err)
		}

		slog.Info(
			"scrape complete",
			"file", out,
			"trips", len(result.Trips),
			"pages", result.Pages,
			"skipped", result.Skipped,
			"seconds", time.Since(t1).Seconds(),
		)
	},
}
