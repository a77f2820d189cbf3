package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/config"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/elasticsearch"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/logger"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
)

const (
	maxConnectRetries = 10
	maxRetryDelay     = 30 * time.Second
)

type articlePurger interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

type rawPruner interface {
	PruneRaw(cutoff time.Time) (int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	if err := waitForElasticsearch(ctx, log, esClient, 2*time.Second); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("failed to connect to elasticsearch after retries", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("connected to elasticsearch")

	reports := reportfs.New(cfg.ReportsDir)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("retention job running",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
		slog.Duration("raw_max_age", cfg.RawMaxAge),
		slog.String("reports_dir", cfg.ReportsDir),
	)

	runOnce(ctx, log, esClient, reports, cfg, time.Now())

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case now := <-ticker.C:
			runOnce(ctx, log, esClient, reports, cfg, now)
		}
	}
}

// waitForElasticsearch pings with exponential backoff until the cluster
// answers, ctx ends or the retries run out.
func waitForElasticsearch(ctx context.Context, log *slog.Logger, es pinger, retryDelay time.Duration) error {
	var err error
	for attempt := range maxConnectRetries {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = es.Ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", maxConnectRetries),
			slog.Duration("retry_in", retryDelay),
		)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		retryDelay = min(retryDelay*2, maxRetryDelay)
	}
	return err
}

// runOnce never fails: errors are logged and retried on the next tick.
func runOnce(ctx context.Context, log *slog.Logger, es articlePurger, raw rawPruner, cfg *config.Retention, now time.Time) {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	deleted, err := es.DeleteOlderThan(subCtx, cfg.MaxAge, cfg.BatchSize)
	switch {
	case err != nil:
		log.Warn("article retention failed (will retry on next interval)", slog.Any("err", err))
	case deleted > 0:
		log.Info("article retention completed", slog.Int64("deleted", deleted))
	default:
		log.Debug("article retention completed, no old documents found")
	}

	pruned, err := raw.PruneRaw(now.Add(-cfg.RawMaxAge))
	switch {
	case err != nil:
		log.Warn("raw snapshot pruning failed", slog.Any("err", err), slog.Int("pruned", pruned))
	case pruned > 0:
		log.Info("raw snapshots pruned", slog.Int("pruned", pruned))
	}
}
