package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/bookstore/internal/config"
	"github.com/dejobratic/bookstore/internal/database"
	idemmemory "github.com/dejobratic/bookstore/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/bookstore/internal/idempotency/postgres"
	"github.com/dejobratic/bookstore/internal/kafka"
	"github.com/dejobratic/bookstore/internal/orders/adapters"
	httpadapter "github.com/dejobratic/bookstore/internal/orders/adapters/http"
	ordersmemory "github.com/dejobratic/bookstore/internal/orders/adapters/memory"
	orderspostgres "github.com/dejobratic/bookstore/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/bookstore/internal/orders/app"
	ordersmetrics "github.com/dejobratic/bookstore/internal/orders/metrics"
	"github.com/dejobratic/bookstore/internal/orders/ports"
	"github.com/dejobratic/bookstore/internal/payment/monobank"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(telemetry.ParseLevel(cfg.Telemetry.LogLevel)).With(
		"service", cfg.Service.Name,
		"version", cfg.Service.Version,
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	meter := tel.Meter(cfg.Service.Name)
	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return err
	}
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return err
	}
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return err
	}
	paymentMetrics, err := monobank.NewMetrics(meter)
	if err != nil {
		return err
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return err
	}

	storage, err := openStorage(ctx, cfg.Database, cfg.HTTP.IdempotencyTTL, logger)
	if err != nil {
		return err
	}
	defer storage.close()

	events, closeEvents, err := newEventBus(cfg.Kafka, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	client := monobank.NewClient(monobank.Config{
		BaseURL:    cfg.Payment.BaseURL,
		APIKey:     cfg.Payment.APIKey,
		Timeout:    cfg.Payment.Timeout,
		MaxRetries: cfg.Payment.MaxRetries,
	},
		monobank.WithMetrics(paymentMetrics),
		monobank.WithLogger(logger),
	)
	keys := monobank.NewKeyProvider(client, cfg.Payment.KeyTTL, paymentMetrics)

	service := ordersapp.NewService(ordersapp.Dependencies{
		Store:       adapters.NewObservableStore(storage.store, dbMetrics),
		Gateway:     client,
		Verifier:    monobank.NewVerifier(keys, logger),
		Events:      adapters.NewObservableEventBus(events, kafkaMetrics, cfg.Kafka.TopicPrefix),
		Idempotency: storage.idempotency,
		Logger:      logger,
		Metrics:     orderMetrics,
	})

	handlerOpts := []httpadapter.Option{httpadapter.WithLogger(logger)}
	if cfg.Payment.WebhookURL != "" {
		handlerOpts = append(handlerOpts, httpadapter.WithWebhookURL(cfg.Payment.WebhookURL))
	} else {
		logger.Warn("PAYMENT_WEBHOOK_URL is not set, webhook urls are derived from the request Host header")
	}
	if cfg.Payment.TrustForwardedProto {
		handlerOpts = append(handlerOpts, httpadapter.WithForwardedProto())
	}

	prometheus.MustRegister(collectors.NewBuildInfoCollector())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := storage.ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("GET "+cfg.HTTP.MetricsPath, promhttp.Handler())
	httpadapter.NewHandler(service, handlerOpts...).Register(mux)

	handler := otelhttp.NewHandler(
		httpadapter.WithRecovery(
			httpadapter.WithLogging(
				httpadapter.WithMetrics(mux, httpMetrics),
				logger,
			),
			logger,
		),
		cfg.Service.Name,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			"port", cfg.HTTP.Port,
			"storage", cfg.Database.Driver,
			"kafka_enabled", len(cfg.Kafka.Brokers) > 0,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

type storage struct {
	store       ports.Store
	idempotency ports.IdempotencyStore
	ready       func(ctx context.Context) error
	close       func()
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, idempotencyTTL time.Duration, logger *slog.Logger) (*storage, error) {
	if cfg.Driver == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		return &storage{
			store:       ordersmemory.NewStore(),
			idempotency: idemmemory.NewStore(idempotencyTTL),
			ready:       func(context.Context) error { return nil },
			close:       func() {},
		}, nil
	}

	if cfg.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.MigrationsPath)
		version, err := database.RunMigrations(cfg.URL, cfg.MigrationsPath)
		if err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations completed successfully", "schema_version", version)
	}

	pool, err := database.NewPool(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	return &storage{
		store:       orderspostgres.NewStore(pool),
		idempotency: idempostgres.NewStore(pool, idempotencyTTL),
		ready:       func(ctx context.Context) error { return database.CheckHealth(ctx, pool) },
		close:       pool.Close,
	}, nil
}

func newEventBus(cfg config.KafkaConfig, logger *slog.Logger) (ports.EventBus, func(), error) {
	if len(cfg.Brokers) == 0 {
		logger.Info("no kafka brokers configured, order events are only logged")
		return kafka.NewNoopEventBus(logger), func() {}, nil
	}

	publisher, err := kafka.NewPublisher(cfg.Brokers, cfg.TopicPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close kafka publisher", "error", err)
		}
	}, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
