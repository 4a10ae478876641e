// Command auditingest runs the Kafka consumer pipeline that scores audit
// events post-execution and persists the resulting reports and execution
// log entries (spec §4.7-§4.9).
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

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/canonica-labs/canonica/internal/config"
	"github.com/canonica-labs/canonica/internal/ingest"
	"github.com/canonica-labs/canonica/internal/metrics"
	"github.com/canonica-labs/canonica/internal/scoring"
	"github.com/canonica-labs/canonica/internal/status"
	"github.com/canonica-labs/canonica/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "auditingest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	for i, a := range os.Args {
		if a == "--config" && i+1 < len(os.Args) {
			configPath = os.Args[i+1]
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := newLogger(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := metrics.New(prometheus.NewRegistry())

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password,
		cfg.Database.Name, cfg.Database.SSLMode)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	runner, err := storage.NewMigrationRunner(db)
	if err != nil {
		return fmt.Errorf("building migration runner: %w", err)
	}
	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	reports := storage.NewPostgresAuditReportRepository(db, reg)

	logs, err := buildLogRepository(cfg.Storage, db, reg)
	if err != nil {
		return fmt.Errorf("building log repository: %w", err)
	}

	checkers, err := scoring.NewCatalogue(scoring.Config{
		SlowQueryThresholdMs:     5000,
		ActualImpactRowThreshold: 10000,
		ErrorRateSpikeThreshold:  5,
		WindowCapacity:           4096,
	})
	if err != nil {
		return fmt.Errorf("building checker catalogue: %w", err)
	}
	engine := scoring.NewEngine(checkers)

	processor := &ingest.ScoringProcessor{Engine: engine, Reports: reports, Logs: logs}

	consumerCfg := ingest.Config{
		Brokers:          cfg.Consumer.Bootstrap,
		Topic:            cfg.Consumer.Topic,
		GroupID:          cfg.Consumer.GroupID,
		Concurrency:      cfg.Consumer.Concurrency,
		QueueCapacity:    cfg.Consumer.QueueCapacity,
		HighWatermark:    cfg.Consumer.HighWatermark,
		LowWatermark:     cfg.Consumer.LowWatermark,
		PollTimeout:      time.Duration(cfg.Consumer.PollTimeoutMs) * time.Millisecond,
		RetryMaxAttempts: cfg.Consumer.Retry.MaxAttempts,
		RetryBaseMs:      cfg.Consumer.Retry.BaseMs,
		RetryFactor:      cfg.Consumer.Retry.Factor,
		RetryJitter:      cfg.Consumer.Retry.Jitter,
	}
	consumer := ingest.NewConsumer(consumerCfg, processor, log, reg)

	retention := storage.NewRetentionScheduler(time.Duration(cfg.Storage.RetentionDays)*24*time.Hour, log)
	retention.Register("audit_reports", reports)
	retention.Register("execution_log", logs)
	if err := retention.Start(ctx, "0 3 * * *"); err != nil {
		return fmt.Errorf("starting retention scheduler: %w", err)
	}
	defer retention.Stop()

	errCh := make(chan error, 2)
	go func() { errCh <- serveOperations(ctx, cfg.Server.MetricsAddr, reg, consumer) }()
	go func() { errCh <- consumer.Run(ctx) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// serveOperations exposes /metrics and /status on one HTTP server, the
// ingestion service's equivalent of a readiness/liveness surface without a
// dashboard.
func serveOperations(ctx context.Context, addr string, reg *metrics.Registry, consumer *ingest.Consumer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.Handle("/status", status.Handler(consumer))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func buildLogRepository(cfg config.StorageConfig, db *sql.DB, reg *metrics.Registry) (storage.ExecutionLogRepository, error) {
	switch cfg.LogBackend {
	case "clickhouse":
		return storage.NewClickHouseLogRepository(storage.ClickHouseConfig{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Table:    cfg.ClickHouse.Table,
		}, reg)
	default:
		return storage.NewRelationalLogRepository(db, reg), nil
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
