// Package bootstrap builds the adapters named in config for the API server
// and the CLI.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appaudit "github.com/bryanwahyu/automaton-sar/internal/application/audit"
	appknowledge "github.com/bryanwahyu/automaton-sar/internal/application/knowledge"
	"github.com/bryanwahyu/automaton-sar/internal/config"
	"github.com/bryanwahyu/automaton-sar/internal/domain/knowledge"
	"github.com/bryanwahyu/automaton-sar/internal/infra/ai/embedcache"
	"github.com/bryanwahyu/automaton-sar/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/automaton-sar/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-sar/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-sar/internal/infra/messaging/kafka"
	"github.com/bryanwahyu/automaton-sar/internal/infra/metrics"
	"github.com/bryanwahyu/automaton-sar/internal/infra/vectorstore/memory"
	"github.com/bryanwahyu/automaton-sar/internal/infra/vectorstore/milvus"
	"github.com/bryanwahyu/automaton-sar/internal/middleware"
)

// Closer releases what a builder opened. Errors are joined.
type Closer []func() error

func (c Closer) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i]())
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// NewAIClient returns the generation and embedding client.
func NewAIClient(cfg *config.Config) *openai.Client {
	return openai.NewClient(openai.Options{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.Model,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		Temperature:    cfg.GenerationTemperature(),
		MaxTokens:      cfg.OpenAI.MaxTokens,
		RequestTimeout: cfg.OpenAI.RequestTimeout,
	})
}

// Knowledge wires the retriever over the configured vector store, with the
// Redis embedding cache in front of the embedder when redis.addr is set.
// The retriever is not seeded; call Initialize.
func Knowledge(ctx context.Context, cfg *config.Config, ai *openai.Client, m *metrics.Metrics, log *zap.Logger, health map[string]middleware.HealthChecker) (*appknowledge.Retriever, Closer, error) {
	var closer Closer

	var embedder knowledge.Embedder = ai
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		closer = append(closer, rdb.Close)
		embedder = embedcache.New(ai, rdb, ai.EmbeddingModel, cfg.Redis.TTL, log)
		if health != nil {
			health["redis"] = middleware.CheckFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}
	}

	var store knowledge.VectorStore
	switch cfg.Knowledge.Store {
	case "milvus":
		c, err := milvus.Connect(ctx, cfg.Milvus.Address)
		if err != nil {
			return nil, closer, err
		}
		closer = append(closer, c.Close)
		ms, err := milvus.Open(ctx, c, milvus.Config{
			Collection: cfg.Milvus.Collection,
			Dimension:  cfg.Milvus.Dimension,
			NList:      cfg.Milvus.NList,
			NProbe:     cfg.Milvus.NProbe,
		}, log)
		if err != nil {
			return nil, closer, err
		}
		store = ms
	default:
		store = memory.New()
	}
	if health != nil {
		health["vectorstore"] = middleware.CheckFunc(func(ctx context.Context) error {
			_, err := store.Count(ctx)
			return err
		})
	}

	r := appknowledge.NewRetriever(store, embedder, log)
	if m != nil {
		r.Metrics = m
	}
	return r, closer, nil
}

// AuditSinks opens the SQL and Kafka sinks named in config. With neither
// configured the recorder still logs every event.
func AuditSinks(ctx context.Context, cfg *config.Config, log *zap.Logger, health map[string]middleware.HealthChecker) ([]appaudit.NamedSink, Closer, error) {
	var (
		sinks  []appaudit.NamedSink
		closer Closer
		db     *sql.DB
		err    error
	)
	switch cfg.Database.Driver {
	case "mysql":
		if db, err = mysqlp.Connect(ctx, cfg.MySQLDSN()); err != nil {
			return nil, closer, fmt.Errorf("mysql connect: %w", err)
		}
		sinks = append(sinks, appaudit.NamedSink{Name: "mysql", Sink: mysqlp.NewAuditRepository(db)})
	case "postgres":
		if db, err = postgres.Connect(ctx, cfg.PostgresDSN()); err != nil {
			return nil, closer, fmt.Errorf("postgres connect: %w", err)
		}
		sinks = append(sinks, appaudit.NamedSink{Name: "postgres", Sink: postgres.NewAuditRepository(db)})
	}
	if db != nil {
		closer = append(closer, db.Close)
		if health != nil {
			health["database"] = &middleware.DatabaseHealthChecker{DB: db}
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewAuditPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		closer = append(closer, pub.Close)
		sinks = append(sinks, appaudit.NamedSink{Name: "kafka", Sink: pub})
	}

	sinks = append(sinks, appaudit.NamedSink{Name: "log", Sink: appaudit.LogSink{Log: log}})
	return sinks, closer, nil
}
