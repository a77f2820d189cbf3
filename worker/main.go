package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/config"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/dedupe"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/elasticsearch"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/identity"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/logger"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/processing"
)

// runIDHeader carries the collection run that published a message.
const runIDHeader = "run_id"

var errEmptyURL = errors.New("article without url")

type articleIndexer interface {
	IndexArticle(ctx context.Context, doc models.ArticleDocument) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := esClient.EnsureIndex(ctx); err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(readerConfig(cfg))
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       dlqTopic,
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, cache, cfg, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlqWriter, msg, err) {
				if ctx.Err() != nil {
					return
				}
				// Leave uncommitted so the message is redelivered after a restart.
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// readerConfig commits only offsets passed to CommitMessages; CommitInterval
// decides whether those commits are flushed per message or in batches.
func readerConfig(cfg *config.Worker) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: cfg.CommitInterval,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// sendToDLQ copies msg with error context to the dead-letter topic, retrying
// with exponential backoff. It reports whether the write succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(append([]kafka.Header(nil), msg.Headers...),
			kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range 5 {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}

	log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}

func processMessage(ctx context.Context, log *slog.Logger, idx articleIndexer, cache *dedupe.Cache, cfg *config.Worker, msg kafka.Message) error {
	var article models.Article
	if err := json.Unmarshal(msg.Value, &article); err != nil {
		return fmt.Errorf("decode article: %w", err)
	}

	article.URL = strings.TrimSpace(article.URL)
	if article.URL == "" {
		return errEmptyURL
	}
	id, err := identity.Derive(article.URL)
	if err != nil {
		return err
	}
	if article.ID == "" {
		article.ID = id
	}
	if article.ID != id {
		return fmt.Errorf("article id %s does not match url %s", article.ID, article.URL)
	}

	version := articleVersion(article)
	if cache.Seen(article.ID, version) {
		log.Debug("duplicate article", slog.String("id", article.ID))
		return nil
	}

	now := time.Now().UTC()
	if article.FetchedAt == nil {
		article.FetchedAt = &now
	}

	text := strings.Join([]string{
		article.Title,
		models.Deref(article.TitleJa),
		article.Summary,
		article.Description,
		strings.Join(article.Tags, " "),
	}, " ")

	doc := models.ArticleDocument{
		Article:   article,
		Keywords:  processing.ExtractKeywords(text, cfg.KeywordLimit, cfg.KeywordMinLength),
		Links:     processing.ExtractURLs(article.Description),
		RunID:     header(msg, runIDHeader),
		IndexedAt: now,
	}

	if err := idx.IndexArticle(ctx, doc); err != nil {
		return err
	}

	cache.Mark(article.ID, version)
	log.Info("indexed article",
		slog.String("id", doc.ID),
		slog.String("source", string(doc.Source)),
		slog.String("title", doc.Title),
	)
	return nil
}

// articleVersion fingerprints the fields that change between collection runs
// or during curation, so an updated article is indexed again.
func articleVersion(a models.Article) string {
	h := sha256.New()
	for _, field := range []string{
		a.Title,
		models.Deref(a.TitleJa),
		string(a.Rank),
		strconv.Itoa(a.Score),
		a.ScoreLabel,
		a.Summary,
		strconv.FormatBool(a.Checked),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
