package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alanyang/agent-exec/internal/adapter/memory"
	natseventbus "github.com/alanyang/agent-exec/internal/adapter/nats/eventbus"
	pgdb "github.com/alanyang/agent-exec/internal/adapter/postgres"
	pgeventbus "github.com/alanyang/agent-exec/internal/adapter/postgres/eventbus"
	pgexec "github.com/alanyang/agent-exec/internal/adapter/postgres/execution"
	pgidem "github.com/alanyang/agent-exec/internal/adapter/postgres/idempotency"
	pglocker "github.com/alanyang/agent-exec/internal/adapter/postgres/locker"
	pgmetrics "github.com/alanyang/agent-exec/internal/adapter/postgres/metrics"
	redismetrics "github.com/alanyang/agent-exec/internal/adapter/redis/metrics"
	"github.com/alanyang/agent-exec/internal/agents/builtin"
	"github.com/alanyang/agent-exec/internal/config"

	porteventbus "github.com/alanyang/agent-exec/internal/port/eventbus"
	portexec "github.com/alanyang/agent-exec/internal/port/execution"
	portidem "github.com/alanyang/agent-exec/internal/port/idempotency"
	portlocker "github.com/alanyang/agent-exec/internal/port/locker"
	portmetrics "github.com/alanyang/agent-exec/internal/port/metrics"

	agentsvc "github.com/alanyang/agent-exec/internal/service/agent"
	bridgesvc "github.com/alanyang/agent-exec/internal/service/bridge"
	execsvc "github.com/alanyang/agent-exec/internal/service/execution"
	trackersvc "github.com/alanyang/agent-exec/internal/service/tracker"
	"github.com/alanyang/agent-exec/internal/trace"

	"github.com/alanyang/agent-exec/internal/transport"
	mcptransport "github.com/alanyang/agent-exec/internal/transport/mcp"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Config    config.Config
	Server    *http.Server
	Core      *execsvc.Core
	AgentSvc  *agentsvc.Service
	EventBus  porteventbus.EventBus
	MCPServer *mcptransport.Server

	tracker *trackersvc.Service
	locker  portlocker.AdvisoryLocker
	idem    portidem.Store

	pool  *pgxpool.Pool
	redis *redis.Client
	nats  *nats.Conn
}

// backends are the adapters selected from config.
type backends struct {
	repo    portexec.Repository
	idem    portidem.Store
	locker  portlocker.AdvisoryLocker
	bus     porteventbus.EventBus
	metrics portmetrics.Store
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies. Empty DATABASE_URL selects the in-memory adapters.
func Build(ctx context.Context, cfg config.Config, rt trace.Runtime) (*App, error) {
	app := &App{Config: cfg}

	b, err := app.connect(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	// ── Services ─────────────────────────────────────────────────────────────
	app.tracker = trackersvc.NewService(b.repo)
	app.locker = b.locker
	app.idem = b.idem
	app.EventBus = b.bus

	app.AgentSvc = agentsvc.NewService()
	if err := builtin.RegisterAll(app.AgentSvc); err != nil {
		app.Close()
		return nil, err
	}

	opts := []execsvc.Option{
		execsvc.WithDefaultTimeout(cfg.DefaultTimeout),
		execsvc.WithTracer(rt.Tracer),
	}
	if b.metrics != nil {
		opts = append(opts, execsvc.WithMetricStore(b.metrics))
	}
	app.Core = execsvc.NewCore(app.tracker, app.AgentSvc, bridgesvc.NewService(b.bus), opts...)

	// ── Transport ─────────────────────────────────────────────────────────────
	reg := mcptransport.NewSessionRegistry()
	app.MCPServer = mcptransport.New(ctx, reg, app.Core, app.tracker, app.AgentSvc)

	router := transport.NewRouter(ctx, app.Core, app.tracker, app.AgentSvc, b.idem, app.MCPServer, b.bus)
	app.Server = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: traced(router),
	}

	slog.Info("application wired",
		"port", cfg.Port,
		"store", storeName(cfg),
		"event_bus", busName(cfg),
		"metrics", cfg.ResolvedMetricsBackend(),
		"agents", app.AgentSvc.List(ctx),
	)
	return app, nil
}

func (a *App) connect(ctx context.Context, cfg config.Config) (backends, error) {
	var b backends

	// ── Database ─────────────────────────────────────────────────────────────
	if cfg.DatabaseURL != "" {
		pool, err := pgdb.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return b, fmt.Errorf("connecting to database: %w", err)
		}
		a.pool = pool
		if err := pgdb.Migrate(ctx, pool); err != nil {
			return b, fmt.Errorf("migrating database: %w", err)
		}
		b.repo = pgexec.New(pool)
		b.idem = pgidem.New(pool, pgidem.WithTTL(cfg.RecordRetention))
		b.locker = pglocker.New(pool)
		b.bus = pgeventbus.New(pool)
	} else {
		b.repo = memory.NewExecutionRepository(cfg.RecordRetention)
		b.idem = memory.NewCache(cfg.RecordRetention)
		b.locker = memory.NewLocker()
		b.bus = memory.NewEventBus()
	}

	// ── Event bus ────────────────────────────────────────────────────────────
	if cfg.NATSURL != "" {
		nc, err := natseventbus.Connect(cfg.NATSURL)
		if err != nil {
			return b, err
		}
		a.nats = nc
		b.bus = natseventbus.New(nc)
	}

	// ── Metric store ─────────────────────────────────────────────────────────
	switch cfg.ResolvedMetricsBackend() {
	case config.MetricsRedis:
		client, err := redismetrics.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return b, err
		}
		a.redis = client
		b.metrics = redismetrics.New(client, redismetrics.WithTTL(cfg.RecordRetention))
	case config.MetricsPostgres:
		b.metrics = pgmetrics.New(a.pool)
	}
	return b, nil
}

// Tracker exposes the execution tracker for in-process callers such as the CLI.
func (a *App) Tracker() *trackersvc.Service { return a.tracker }

// Close releases every backend connection. Safe to call on a partially built App.
func (a *App) Close() {
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			slog.Warn("nats drain failed", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func storeName(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return "postgres"
	}
	return "memory"
}

func busName(cfg config.Config) string {
	switch {
	case cfg.NATSURL != "":
		return "nats"
	case cfg.DatabaseURL != "":
		return "postgres"
	default:
		return "memory"
	}
}

// traced wraps the router in an otelhttp server span so executions started
// over HTTP parent onto the caller's trace. Socket upgrades are long-lived and
// excluded.
func traced(h http.Handler) http.Handler {
	return otelhttp.NewHandler(h, "agent-exec",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/api/ws"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}
