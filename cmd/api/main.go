package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-sar/internal/application"
	appalerts "github.com/bryanwahyu/automaton-sar/internal/application/alerts"
	appanalysis "github.com/bryanwahyu/automaton-sar/internal/application/analysis"
	appaudit "github.com/bryanwahyu/automaton-sar/internal/application/audit"
	"github.com/bryanwahyu/automaton-sar/internal/bootstrap"
	"github.com/bryanwahyu/automaton-sar/internal/config"
	"github.com/bryanwahyu/automaton-sar/internal/infra/ai/prompt"
	"github.com/bryanwahyu/automaton-sar/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-sar/internal/infra/metrics"
	minioStore "github.com/bryanwahyu/automaton-sar/internal/infra/storage"
	"github.com/bryanwahyu/automaton-sar/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("sar")
	health := map[string]middleware.HealthChecker{}
	clock := application.SystemClock{}

	aiClient := bootstrap.NewAIClient(cfg)

	retriever, closeKnowledge, err := bootstrap.Knowledge(ctx, cfg, aiClient, m, log, health)
	defer func() { _ = closeKnowledge.Close() }()
	if err != nil {
		return fmt.Errorf("knowledge store: %w", err)
	}
	if n, err := retriever.Initialize(ctx); err != nil {
		// retrieval falls back to a fixed reference text until seeding succeeds
		log.Error("knowledge seed failed", zap.Error(err))
	} else if n > 0 {
		log.Info("knowledge store seeded", zap.Int("documents", n))
	}

	sinks, closeAudit, err := bootstrap.AuditSinks(ctx, cfg, log, health)
	defer func() { _ = closeAudit.Close() }()
	if err != nil {
		return fmt.Errorf("audit sinks: %w", err)
	}
	recorder := appaudit.NewRecorder(log, clock, sinks...)
	recorder.Metrics = m

	analysisSvc := &appanalysis.Service{
		AI:          aiClient,
		Knowledge:   retriever,
		Prompts:     prompt.Stages{},
		Audit:       recorder,
		Metrics:     m,
		Clock:       clock,
		Log:         log,
		Model:       aiClient.ModelName(),
		Temperature: cfg.GenerationTemperature(),
		RetrievalK:  cfg.Knowledge.RetrievalK,
	}

	// init minio
	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		analysisSvc.Archive = store
	}

	alertSvc := appalerts.NewService(recorder, m, log)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	go limiter.RunCleanup(ctx)

	handler := httpserver.NewRouter(analysisSvc, alertSvc, httpserver.Options{
		Log:            log,
		Metrics:        m,
		MetricsHandler: m.Handler(),
		Limiter:        limiter,
		Health:         health,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr), zap.String("model", aiClient.ModelName()), zap.String("knowledge_store", cfg.Knowledge.Store))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	return nil
}
