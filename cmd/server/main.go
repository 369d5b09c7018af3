package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apphandler "verity/internal/application/handler"
	appmetrics "verity/internal/application/metrics"
	appservice "verity/internal/application/service"
	appstore "verity/internal/application/store"
	"verity/internal/notification"
	"verity/internal/platform/config"
	"verity/internal/platform/httpserver"
	"verity/internal/platform/jwttoken"
	"verity/internal/platform/kafka"
	"verity/internal/platform/logger"
	platformmetrics "verity/internal/platform/metrics"
	"verity/internal/platform/postgres"
	"verity/internal/platform/redis"
	"verity/internal/risk/engine"
	riskmetrics "verity/internal/risk/metrics"
	riskservice "verity/internal/risk/service"
	riskstore "verity/internal/risk/store"
	"verity/internal/verification/adapters"
	"verity/internal/verification/adapters/registryhttp"
	"verity/internal/verification/adapters/simulated"
	"verity/internal/verification/cache"
	"verity/internal/verification/evidence"
	verificationmetrics "verity/internal/verification/metrics"
	"verity/internal/verification/orchestrator"
	"verity/internal/verification/pipeline"
	wfmetrics "verity/internal/workflow/metrics"
	wfservice "verity/internal/workflow/service"
	wfstore "verity/internal/workflow/store"
	"verity/pkg/platform/httputil"
	"verity/pkg/platform/middleware/metadata"
	"verity/pkg/platform/middleware/ratelimit"
	"verity/pkg/platform/middleware/requesttime"
	"verity/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	apps     appservice.Store
	pipeApps pipeline.ApplicationStore
	workflow wfservice.Store
	risk     riskservice.Store
	evidence pipeline.EvidenceStore
	tx       tx.Runner
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	db, st, err := openStores(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	var probes []named
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var resultCache cache.Store
	if redisClient != nil {
		defer redisClient.Close()
		probes = append(probes, named{"redis", redisClient})
		resultCache = cache.NewRedis(redisClient.Client, redisClient.Prefix())
		log.Info("result cache backed by redis")
	} else {
		mem := cache.NewInMemory(cache.WithLogger(log))
		if err := mem.StartSweeper(cfg.Pipeline.CacheSweepSpec); err != nil {
			return fmt.Errorf("start cache sweeper: %w", err)
		}
		defer mem.Stop()
		resultCache = mem
		log.Info("result cache held in process")
	}

	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	var sink notification.Sink = notification.NewLogSink(log)
	if kafkaClient != nil {
		defer kafkaClient.Close()
		probes = append(probes, named{"kafka", kafkaClient})
		sink = notification.NewKafkaSink(kafkaClient, kafkaClient.Topic())
		log.Info("notifications published to kafka", "topic", kafkaClient.Topic())
	}
	dispatcher := notification.NewDispatcher(sink,
		notification.WithLogger(log),
		notification.WithMetrics(notification.NewMetrics()),
		notification.WithQueueSize(cfg.Kafka.QueueSize),
		notification.WithSendTimeout(cfg.Kafka.WriteTimeout),
	)

	orch, err := orchestrator.New(adapterSet(cfg.Pipeline), resultCache, cfg.Pipeline, policy.CacheTTL,
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(verificationmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	workflow := wfservice.New(st.workflow, wfservice.TemplatesFromPolicy(policy),
		wfservice.WithLogger(log),
		wfservice.WithMetrics(wfmetrics.New()),
	)
	risk := riskservice.New(st.risk, engine.New(policy),
		riskservice.WithLogger(log),
		riskservice.WithMetrics(riskmetrics.New()),
	)
	pipe := pipeline.New(st.pipeApps, st.evidence, workflow, risk, orch, pipeline.WithLogger(log))
	svc := appservice.New(st.apps, workflow, risk, pipe,
		appservice.WithLogger(log),
		appservice.WithMetrics(appmetrics.New()),
		appservice.WithNotifier(dispatcher),
		appservice.WithTxRunner(st.tx),
	)

	tokens := jwttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	limiter := ratelimit.New(cfg.Server.RequestRPS, cfg.Server.RequestBurst, ratelimit.WithLogger(log))
	handler := apphandler.New(svc, log, jwttoken.NewMiddlewareAdapter(tokens),
		apphandler.WithMiddleware(limiter.Middleware),
	)

	httpMetrics := platformmetrics.New()
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)
	r.Handle("/metrics", platformmetrics.Handler())
	r.Get("/healthz", healthHandler(db, probes...))
	handler.Register(r)

	srv := httpserver.New(cfg.Server.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting verity", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("notification queue not drained", "error", err)
	}
	return nil
}

// openStores returns Postgres-backed stores when a DSN is configured and
// in-memory ones otherwise.
func openStores(ctx context.Context, cfg config.PostgresConfig, log *slog.Logger) (*sql.DB, stores, error) {
	if cfg.DSN == "" {
		log.Warn("DATABASE_URL not set; state is kept in memory and lost on restart")
		apps := appstore.NewInMemory()
		return nil, stores{
			apps:     apps,
			pipeApps: apps,
			workflow: wfstore.NewInMemory(),
			risk:     riskstore.NewInMemory(),
			evidence: evidence.NewInMemory(),
			tx:       tx.NoopRunner{},
		}, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.DSN); err != nil {
			return nil, stores{}, err
		}
	}
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, stores{}, err
	}
	apps := appstore.NewPostgres(db)
	return db, stores{
		apps:     apps,
		pipeApps: apps,
		workflow: wfstore.NewPostgres(db),
		risk:     riskstore.NewPostgres(db),
		evidence: evidence.NewPostgres(db),
		tx:       tx.NewSQLRunner(db),
	}, nil
}

func adapterSet(cfg config.PipelineConfig) adapters.Set {
	var registry adapters.RegistryVerifier = simulated.NewRegistry()
	if cfg.RegistryEndpoint != "" {
		registry = registryhttp.New("registry-http", cfg.RegistryEndpoint,
			registryhttp.WithAPIKey(os.Getenv("REGISTRY_API_KEY")),
			registryhttp.WithHTTPClient(&http.Client{Timeout: cfg.AttemptTimeout}),
		)
	}
	return adapters.Set{
		Extractor: simulated.NewExtractor(),
		Matcher:   simulated.NewMatcher(),
		Registry:  registry,
		FraudDetectors: []adapters.FraudDetector{
			simulated.NewBehavioralDetector(),
			simulated.NewHistoryDetector(),
		},
	}
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type named struct {
	name string
	healthChecker
}

func healthHandler(db *sql.DB, deps ...named) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["postgres"] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		for _, d := range deps {
			if err := d.Health(ctx); err != nil {
				status[d.name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
