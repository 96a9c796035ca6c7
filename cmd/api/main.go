package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/analyses"
	appruns "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/runs"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/config"
	domain "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/runs"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/provider"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/dataset"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/db/migrations"
	mysqlp "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/db/mysql"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/db/postgres"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/export"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/httpserver"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/metrics"
	minioStore "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/storage"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", logger.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, repo, failures, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db, cfg.Database.Driver); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var artifacts domain.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		}, log)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		artifacts = store
	} else {
		log.Warn("minio endpoint not set, artifacts stay in the work dir")
	}

	client, err := provider.New(ctx, cfg.LLM, cfg.APIKey())
	if err != nil {
		return err
	}

	m := metrics.New()
	svc := &appruns.Service{
		Repo:      repo,
		Failures:  failures,
		Artifacts: artifacts,
		Reader:    dataset.NewReader(),
		Exporter:  export.NewWriter(),
		Analyzer: &analyses.Runner{
			Client:   client,
			Settings: cfg.Settings(),
			Log:      log,
			Observer: m,
		},
		Columns: cfg.Columns,
		Clock:   application.SystemClock{},
		Log:     log,
		WorkDir: cfg.Server.WorkDir,
	}

	keys, err := middleware.ParseAPIKeys(cfg.Auth.APIKeys)
	if err != nil {
		return fmt.Errorf("auth.apiKeys: %w", err)
	}
	if len(keys) == 0 {
		log.Warn("no API keys configured, the run API is unauthenticated")
	}
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitBurst, cfg.Server.RateLimitRPS)
	go limiter.Run(ctx)

	router := httpserver.NewRouter(httpserver.Deps{
		Runs:        svc,
		Log:         log,
		Metrics:     m,
		APIKeys:     keys,
		RateLimiter: limiter,
		Checkers:    map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: db}},
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("addr", srv.Addr), logger.String("provider", cfg.LLM.Provider))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", logger.Error(err))
	}
	if err := router.Wait(shutdownCtx); err != nil {
		log.Warn("background runs still executing at exit", logger.Error(err))
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, domain.Repository, domain.FailureRepository, error) {
	if cfg.Database.Driver == "postgres" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		return db, postgres.NewRunRepository(db), postgres.NewFailureRepository(db), nil
	}
	db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("mysql connect: %w", err)
	}
	return db, mysqlp.NewRunRepository(db), mysqlp.NewFailureRepository(db), nil
}
