package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fuelcast/fuelcast/internal/forecast"
	jobmetrics "github.com/fuelcast/fuelcast/internal/jobs"
	"github.com/fuelcast/fuelcast/internal/observability"
	"github.com/fuelcast/fuelcast/internal/odata"
	"github.com/fuelcast/fuelcast/internal/platform/cache"
	"github.com/fuelcast/fuelcast/internal/platform/db"
	"github.com/fuelcast/fuelcast/internal/shared"
	"github.com/fuelcast/fuelcast/internal/ui"
	"github.com/fuelcast/fuelcast/internal/view"
	"github.com/fuelcast/fuelcast/jobs"
)

const testModeEnv = "FUELCAST_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// detectTestMode reads the FUELCAST_TEST_MODE flag once.
func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// Runtime owns the process wide connections and the forecast service.
type Runtime struct {
	Config     *Config
	Logger     *slog.Logger
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Metrics    *observability.Metrics
	Procedures *jobmetrics.Metrics
	Cache      *forecast.Cache
	Service    *forecast.Service
}

// NewRuntime opens the pool and Redis and wires the forecast service.
func NewRuntime(ctx context.Context, cfg *Config, logger *slog.Logger, process string) (*Runtime, error) {
	procedures, err := forecast.ProceduresFor(cfg.ProcedureProfile)
	if err != nil {
		return nil, err
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{ApplicationName: "fuelcast-" + process})
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	procedureMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	readCache := forecast.NewCache(redisClient, cfg.CacheTTL)
	runner := forecast.NewRunner(forecast.PgxConnector(cfg.ProcedureConnString()), procedures, logger, procedureMetrics)
	service := forecast.NewService(forecast.NewRepository(pool), readCache, runner, logger)

	logger.Info("runtime ready",
		slog.String("procedure_profile", cfg.ProcedureProfile),
		slog.Duration("cache_ttl", cfg.CacheTTL),
	)
	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Pool:       pool,
		Redis:      redisClient,
		Metrics:    metrics,
		Procedures: procedureMetrics,
		Cache:      readCache,
		Service:    service,
	}, nil
}

// ListenForInvalidation follows cache version bumps from other instances.
func (rt *Runtime) ListenForInvalidation(ctx context.Context) {
	onBump := func(version int64) {
		rt.Logger.Info("forecast cache invalidated", slog.Int64("version", version))
	}
	if err := rt.Cache.ListenForInvalidation(ctx, onBump); err != nil {
		rt.Logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
}

// RedisOpts converts REDIS_ADDR into asynq connection options.
func RedisOpts(addr string) (asynq.RedisClientOpt, error) {
	opts, err := cache.Options(addr)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{Addr: opts.Addr, Username: opts.Username, Password: opts.Password, DB: opts.DB, TLSConfig: opts.TLSConfig}, nil
}

// Backend returns what the UI talks to: the in-process service, or the
// remote OData service when ODATA_REMOTE_URL is set.
func (rt *Runtime) Backend() ui.Backend {
	if rt.Config.ODataRemoteURL != "" {
		rt.Logger.Info("ui uses remote odata service", slog.String("url", rt.Config.ODataRemoteURL))
		return odata.NewClient(rt.Config.ODataRemoteURL, &http.Client{})
	}
	return ui.NewLocalBackend(rt.Service)
}

// HTTPHandler builds the full web surface. The returned closer releases the
// job client and inspector.
func (rt *Runtime) HTTPHandler() (http.Handler, func(), error) {
	templates, err := view.NewEngine()
	if err != nil {
		return nil, nil, fmt.Errorf("parse templates: %w", err)
	}
	redisOpts, err := RedisOpts(rt.Config.RedisAddr)
	if err != nil {
		return nil, nil, err
	}

	cfg := rt.Config
	sessionManager := shared.NewSessionManager(rt.Redis, "fuelcast_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	backend := rt.Backend()
	busy := ui.NewRedisBusy(rt.Redis, 0)
	uiHandler := ui.NewHandler(rt.Logger, templates, csrfManager,
		ui.NewMasterController(backend, busy, rt.Logger),
		ui.NewDetailController(backend, rt.Logger),
		cfg.Locale(),
	)

	inspector := asynq.NewInspector(redisOpts)
	jobClient := jobs.NewClient(redisOpts)
	closer := func() {
		if err := inspector.Close(); err != nil {
			rt.Logger.Warn("inspector close", slog.Any("error", err))
		}
		if err := jobClient.Close(); err != nil {
			rt.Logger.Warn("job client close", slog.Any("error", err))
		}
	}

	router := NewRouter(RouterParams{
		Logger:         rt.Logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		UIHandler:      uiHandler,
		ODataHandler:   odata.NewHandler(rt.Logger, rt.Service),
		JobHandler:     jobs.NewHandler(inspector, jobClient, rt.Logger),
		Metrics:        rt.Metrics,
	})
	return router, closer, nil
}

// Close releases the pool and Redis client.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.Logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second
