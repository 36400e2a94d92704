package commands

import (
	"citibike-scraper/lib/telemetry"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	cfg       Config
	tel       telemetry.Telemetry
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "citibike-cli",
	Short: "citibike-cli downloads and inspects the trip history of a Citi Bike member.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		logCloser = telemetry.InitSlog(cfg.Log)

		tel, err = telemetry.SetupFromEnv(cmd.Context(), "citibike-cli")
		if err != nil {
			slog.Warn("telemetry disabled", "err", err)
		}
		if cfg.PerfStatsSeconds > 0 {
			telemetry.InstrumentPerfStats(
				cmd.Context(),
				time.Duration(cfg.PerfStatsSeconds)*time.Second,
				telemetry.SlogAPI{},
			)
		}
		return nil
	},
	SilenceUsage: true,
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	err := tel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	if logCloser != nil {
		logCloser.Close()
	}
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}
