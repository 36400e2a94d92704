package main

import (
	"citibike-scraper/cmd/citibike-cli/commands"
	"citibike-scraper/lib/osutil"
	"context"
	"log/slog"
	"os"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background(), func(sig os.Signal) {
		slog.Warn("interrupted, stopping after the current page", "signal", sig.String())
	})
	defer cancel()
	commands.ExecuteContext(ctx)
}
