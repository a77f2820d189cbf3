package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/config"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/elasticsearch"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/logger"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/store"
)

const watchDebounce = 300 * time.Millisecond

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open store", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	reports := reportfs.New(cfg.ReportsDir)

	srv := &server{
		log:       log,
		cfg:       cfg,
		search:    esClient,
		reports:   reports,
		deepDives: reportfs.NewDeepDives(cfg.DeepDivesDir),
		favorites: db,
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if cfg.WatchReports {
		watcher := reportfs.NewWatcher(reports, watchDebounce, log)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Error("report watcher stopped", slog.Any("err", err))
			}
		}()
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
