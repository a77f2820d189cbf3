package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/config"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/logger"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/sources"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/store"
)

const dateLayout = "2006-01-02"

// app carries what every subcommand needs. Config is loaded once, before any
// subcommand runs.
type app struct {
	log *slog.Logger
	cfg *config.Collector
}

func main() {
	a := &app{log: logger.New("headlines")}

	root := &cobra.Command{
		Use:           "headlines",
		Short:         "Collect, curate and publish the daily headline report",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadCollector()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		a.collectCmd(),
		a.buildCmd(),
		a.convertCmd(),
		a.commentsCmd(),
		a.excludeCmd(),
		a.watchCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		a.log.Error("command failed", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}

func (a *app) reports() *reportfs.Store {
	return reportfs.New(a.cfg.ReportsDir)
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.DBPath)
}

func (a *app) client() *sources.Client {
	return sources.NewClient(a.cfg.HTTPTimeout, a.cfg.RequestInterval, a.log)
}

// today is the default report date, in local time like the report header.
func today() string {
	return time.Now().Format(dateLayout)
}
