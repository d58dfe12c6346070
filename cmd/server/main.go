package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"propreg/internal/ledger"
	"propreg/internal/ledger/publisher"
	kafkapublisher "propreg/internal/ledger/publisher/kafka"
	"propreg/internal/ledger/store/memory"
	pgstore "propreg/internal/ledger/store/postgres"
	redisstore "propreg/internal/ledger/store/redis"
	"propreg/internal/platform/config"
	"propreg/internal/platform/httpserver"
	platformkafka "propreg/internal/platform/kafka"
	"propreg/internal/platform/logger"
	"propreg/internal/platform/metrics"
	"propreg/internal/platform/middleware"
	platformpostgres "propreg/internal/platform/postgres"
	platformredis "propreg/internal/platform/redis"
	"propreg/internal/platform/tracing"
	"propreg/internal/registry"
	"propreg/internal/registry/handler"
	"propreg/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/registry.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tp, err := tracing.Setup(ctx, "propreg", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	backend, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	opts := []ledger.Option{
		ledger.WithLogger(log),
		ledger.WithMetrics(ledger.NewMetrics(reg)),
		ledger.WithMaxAttempts(cfg.MaxTxAttempts),
		ledger.WithTracer(tp.Tracer("propreg/ledger")),
	}
	kafkaClient, err := platformkafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
		if err := kafkapublisher.EnsureTopic(ctx, kafkaClient, cfg.Kafka.Topic, 1, 1); err != nil {
			return err
		}
		breaker := circuit.New("kafka-commits", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second))
		pub := publisher.NewGuarded(kafkapublisher.New(kafkaClient, cfg.Kafka.Topic), breaker, log)
		opts = append(opts, ledger.WithPublisher(pub))
		log.Info("publishing commits", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	runtime := ledger.NewRuntime(backend, opts...)
	registrySvc := registry.New(newBoundedInvoker(runtime, defaultInvokeTimeout), registry.WithLogger(log))
	registrySvc.Instantiate(ctx)

	if cfg.AdminToken == "" {
		log.Warn("PROPREG_ADMIN_TOKEN is not set, admin routes will reject every request")
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(metrics.New(reg)))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler.New(registrySvc, log, cfg.AdminToken).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting property registry", "addr", cfg.Addr, "backend", cfg.LedgerBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openBackend connects the configured ledger backend. The returned func
// releases its connections.
func openBackend(ctx context.Context, cfg config.Server, log *slog.Logger) (ledger.Backend, func(), error) {
	switch cfg.LedgerBackend {
	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis ledger backend")
		return redisstore.New(client.Client), func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		pool, err := platformpostgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := pgstore.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("using postgres ledger backend")
		return store, pool.Close, nil
	default:
		log.Warn("using in-memory ledger backend, state is lost on restart")
		return memory.New(), func() {}, nil
	}
}
