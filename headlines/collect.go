package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/config"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/pipeline"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/sources"
)

// runIDHeader tags every published message with its collection run.
const runIDHeader = "run_id"

var errNothingCollected = errors.New("no articles collected")

type payloadFetcher interface {
	Fetch(ctx context.Context) (pipeline.Payloads, []sources.FeedError, error)
}

type articlePublisher interface {
	Publish(ctx context.Context, runID string, articles []models.Article) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func (a *app) collectCmd() *cobra.Command {
	var (
		dateFlag  string
		noPublish bool
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch all sources, normalize them and write the day's raw snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			excluded, err := db.Exclusions(ctx)
			if err != nil {
				return err
			}

			var pub articlePublisher
			if len(a.cfg.KafkaBrokers) > 0 && !noPublish {
				w := &kafka.Writer{
					Addr:         kafka.TCP(a.cfg.KafkaBrokers...),
					Topic:        a.cfg.KafkaTopic,
					Balancer:     &kafka.Hash{},
					RequiredAcks: kafka.RequireAll,
				}
				defer w.Close()
				pub = &kafkaPublisher{w: w}
			}

			opts := collectOptions{
				Date:  dateFlag,
				Now:   time.Now(),
				RunID: uuid.NewString(),
			}
			res, err := collect(ctx, a.log, newLiveSources(a, a.cfg.Sources), excluded, a.reports(), pub, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d articles written to %s\n", len(res.Articles), res.RawPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", today(), "report date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "skip publishing to Kafka even when brokers are configured")
	return cmd
}

type collectOptions struct {
	Date  string
	Now   time.Time
	RunID string
}

type collectResult struct {
	Articles   []models.Article
	Stats      pipeline.Stats
	RawPath    string
	FeedErrors []sources.FeedError
}

// collect runs one collection: fetch, normalize against the exclusion list,
// stamp, persist the raw snapshot and optionally publish. pub may be nil.
// Individual feed failures are logged; only a run that yields nothing fails.
func collect(ctx context.Context, log *slog.Logger, f payloadFetcher, excluded pipeline.ExclusionSet, reports *reportfs.Store, pub articlePublisher, opts collectOptions) (*collectResult, error) {
	if _, err := reports.RawPath(opts.Date); err != nil {
		return nil, err
	}
	log = log.With(slog.String("run_id", opts.RunID), slog.String("date", opts.Date))

	payloads, feedErrs, err := f.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch sources: %w", err)
	}
	for _, fe := range feedErrs {
		log.Warn("feed failed", slog.String("feed", fe.Key), slog.Any("err", fe.Err))
	}

	articles, stats, err := pipeline.Run(payloads, excluded)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	logStats(log, stats)

	if len(articles) == 0 && len(feedErrs) > 0 {
		return nil, fmt.Errorf("%w: %d feeds failed", errNothingCollected, len(feedErrs))
	}

	fetchedAt := opts.Now.UTC()
	for i := range articles {
		articles[i].FetchedAt = &fetchedAt
	}

	path, err := reports.SaveRaw(opts.Date, articles)
	if err != nil {
		return nil, fmt.Errorf("save raw snapshot: %w", err)
	}
	log.Info("raw snapshot written", slog.String("path", path), slog.Int("articles", len(articles)))

	if pub != nil && len(articles) > 0 {
		if err := pub.Publish(ctx, opts.RunID, articles); err != nil {
			return nil, err
		}
		log.Info("articles published", slog.Int("articles", len(articles)))
	}

	return &collectResult{Articles: articles, Stats: stats, RawPath: path, FeedErrors: feedErrs}, nil
}

func logStats(log *slog.Logger, stats pipeline.Stats) {
	for _, s := range []struct {
		source models.Source
		stats  pipeline.SourceStats
	}{
		{models.SourceHatena, stats.Hatena},
		{models.SourceYahoo, stats.Yahoo},
		{models.SourceReddit, stats.Reddit},
	} {
		log.Info("source normalized",
			slog.String("source", string(s.source)),
			slog.Int("kept", s.stats.Kept),
			slog.Int("excluded", s.stats.Excluded),
			slog.Int("duplicate", s.stats.Duplicate),
		)
	}
}

// liveSources fetches the three upstreams concurrently. Each has its own
// client so one slow site does not hold up the others' rate limits.
type liveSources struct {
	hatena *sources.Hatena
	yahoo  *sources.Yahoo
	reddit *sources.Reddit
	cfg    config.Sources
}

func newLiveSources(a *app, cfg config.Sources) *liveSources {
	return &liveSources{
		hatena: sources.NewHatena(a.client(), ""),
		yahoo:  sources.NewYahoo(a.client(), cfg.Yahoo.Feeds),
		reddit: sources.NewReddit(a.client(), ""),
		cfg:    cfg,
	}
}

func (s *liveSources) Fetch(ctx context.Context) (pipeline.Payloads, []sources.FeedError, error) {
	var (
		hatena sources.HatenaResult
		yahoo  sources.YahooResult
		reddit sources.RedditResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hatena = s.hatena.Fetch(gctx, s.cfg.Hatena.Categories)
		return gctx.Err()
	})
	g.Go(func() error {
		yahoo = s.yahoo.Fetch(gctx, s.cfg.YahooKeys())
		return gctx.Err()
	})
	g.Go(func() error {
		reddit = s.reddit.Hot(gctx, s.cfg.Reddit.Subreddits, s.cfg.Reddit.Limit)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return pipeline.Payloads{}, nil, err
	}

	p := pipeline.Payloads{Hatena: hatena.Items, Yahoo: yahoo.Items, Reddit: reddit.Items}
	return p, slices.Concat(hatena.Errors, yahoo.Errors, reddit.Errors), nil
}

// kafkaPublisher writes one message per article, keyed by article ID so
// updates to the same article land on the same partition.
type kafkaPublisher struct {
	w messageWriter
}

func (p *kafkaPublisher) Publish(ctx context.Context, runID string, articles []models.Article) error {
	msgs := make([]kafka.Message, 0, len(articles))
	for _, a := range articles {
		value, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode article %s: %w", a.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(a.ID),
			Value:   value,
			Headers: []kafka.Header{{Key: runIDHeader, Value: []byte(runID)}},
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish articles: %w", err)
	}
	return nil
}
