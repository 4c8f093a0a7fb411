package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/applied/internal/adapter/httpserver"
	"github.com/pscheid92/applied/internal/adapter/memory"
	"github.com/pscheid92/applied/internal/adapter/metrics"
	"github.com/pscheid92/applied/internal/adapter/postgres"
	"github.com/pscheid92/applied/internal/adapter/redis"
	"github.com/pscheid92/applied/internal/app"
	"github.com/pscheid92/applied/internal/domain"
	"github.com/pscheid92/applied/internal/platform/config"
	"github.com/pscheid92/applied/internal/platform/logging"
	"github.com/pscheid92/applied/internal/platform/retry"
	"github.com/pscheid92/applied/internal/platform/version"
	"github.com/pscheid92/applied/internal/projection"
	goredis "github.com/redis/go-redis/v9"
)

const connectTimeout = 10 * time.Second

type stores struct {
	applications domain.ApplicationRepository
	events       domain.EventLog
	pool         *pgxpool.Pool
}

func runGracefulShutdown(srv *httpserver.Server, timeout time.Duration) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func startupPolicy(dependency string) retry.Policy {
	p := retry.Startup
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency not reachable, retrying", "dependency", dependency, "attempt", attempt, "backoff", backoff, "error", err)
	}
	return p
}

func setupStores(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, clock clockwork.Clock) stores {
	if cfg.StorageBackend == config.BackendMemory {
		slog.Warn("Using in-memory storage; data is lost on restart")
		store := memory.NewStore(clock)
		return stores{applications: store, events: store}
	}

	tracer := postgres.NewQueryTracer(metrics.NewDatabaseMetrics(reg))
	pool, err := retry.Do(ctx, startupPolicy("postgres"), retry.UnlessCanceled, func() (*pgxpool.Pool, error) {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return postgres.Connect(connectCtx, cfg.DatabaseURL, tracer)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return stores{
		applications: postgres.NewApplicationRepo(pool),
		events:       postgres.NewEventLog(pool),
		pool:         pool,
	}
}

func setupRedis(ctx context.Context, cfg *config.Config, redisMetrics *metrics.RedisMetrics) *goredis.Client {
	hook := redis.NewMetricsHook(redisMetrics)
	client, err := retry.Do(ctx, startupPolicy("redis"), retry.UnlessCanceled, func() (*goredis.Client, error) {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return redis.NewClient(connectCtx, cfg.RedisURL, hook)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	// Installed after connecting so startup retries cannot open the circuit.
	client.AddHook(redis.NewCircuitBreakerHook(redis.DefaultBreakerSettings(), redisMetrics))
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "version", version.Get().String(), "env", cfg.AppEnv, "port", cfg.Port, "storage", cfg.StorageBackend)

	ctx := context.Background()
	reg := metrics.NewRegistry()

	st := setupStores(ctx, cfg, reg, clock)
	if st.pool != nil {
		defer st.pool.Close()
	}

	var healthChecks []httpserver.HealthCheck
	if st.pool != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: st.pool.Ping})
	}

	var server *httpserver.Server
	projector := projection.New(projection.Options{
		StaleThreshold: cfg.StaleThreshold,
		StaleTopN:      cfg.StaleTopN,
		Language:       cfg.SortLanguage(),
	})

	// Pass nil explicitly when Redis is not configured to avoid typed-nil interfaces.
	if cfg.RedisURL != "" {
		redisClient := setupRedis(ctx, cfg, metrics.NewRedisMetrics(reg))
		defer func() { _ = redisClient.Close() }()

		eventPublisher := redis.NewEventPublisher(redisClient, cfg.EventStreamMaxLen, metrics.NewEventMetrics(reg))
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})

		appSvc := app.NewService(st.applications, st.events, eventPublisher, projector, metrics.NewLifecycleMetrics(reg), clock)
		server = httpserver.NewServer(cfg, appSvc, eventPublisher, reg, healthChecks, clock)
	} else {
		slog.Info("REDIS_URL not set, event publishing disabled")
		appSvc := app.NewService(st.applications, st.events, nil, projector, metrics.NewLifecycleMetrics(reg), clock)
		server = httpserver.NewServer(cfg, appSvc, nil, reg, healthChecks, clock)
	}

	done := runGracefulShutdown(server, cfg.ShutdownTimeout)

	if err := server.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
