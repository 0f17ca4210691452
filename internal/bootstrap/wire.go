package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/audit"
	"github.com/tenantcare/auth-service/internal/config"
	"github.com/tenantcare/auth-service/internal/infrastructure/db/postgres"
	"github.com/tenantcare/auth-service/internal/infrastructure/memory"
	"github.com/tenantcare/auth-service/internal/infrastructure/messaging/dispatch"
	"github.com/tenantcare/auth-service/internal/infrastructure/messaging/natsbus"
	rabbitmq_pub "github.com/tenantcare/auth-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/tenantcare/auth-service/internal/infrastructure/redis"
	"github.com/tenantcare/auth-service/internal/infrastructure/security"
	"github.com/tenantcare/auth-service/internal/logger"
	http_handlers "github.com/tenantcare/auth-service/internal/transport/http/handlers"
	"github.com/tenantcare/auth-service/internal/transport/http/middleware"
	"github.com/tenantcare/auth-service/internal/transport/http/response"
	"github.com/tenantcare/auth-service/internal/transport/http/router"
)

const drainTimeout = 10 * time.Second

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (*sql.DB, error)

	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(opts redis.Options) *redis.Client

	NewPublisher func(cfg *config.Config) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type Publisher interface {
	reset.EventPublisher
	Close() error
}

// Store is satisfied by the postgres and in-memory stores.
type Store interface {
	reset.TxRunner
	postgres.Seeder
	Repos() reset.Repos
	Ping(ctx context.Context) error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()

	// 1) store
	store, closeStore, err := openStore(cfg, deps)
	if err != nil {
		return nil, nil, err
	}
	if closeStore != nil {
		cleanupFns = append(cleanupFns, closeStore)
	}

	// 2) security
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt signer")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)

	// seed
	if cfg.SeedDemo {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := postgres.SeedDemo(ctx, store, hasher)
		cancel()
		if err != nil {
			runCleanup(cleanupFns)
			return nil, nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	// 3) redis (best-effort)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; rate limiting disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 4) publisher + dispatcher
	pub, err := deps.NewPublisher(cfg)
	if err != nil {
		if cfg.Env == "dev" {
			logger.Logger.Warn().Err(err).Str("broker", cfg.Broker).Msg("broker unavailable; using noop publisher")
			pub = memory.NewNoopPublisher()
		} else {
			runCleanup(cleanupFns)
			return nil, nil, err
		}
	}
	cleanupFns = append(cleanupFns, func() { _ = pub.Close() })

	dispatcher := dispatch.New(pub, cfg.EventTopic, cfg.EventPublishTimeout)
	cleanupFns = append(cleanupFns, func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := dispatcher.Close(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("event dispatcher did not drain")
		}
	})

	// 5) service
	repos := store.Repos()
	resetSvc := reset.NewService(
		repos,
		store,
		hasher,
		dispatcher,
		reset.Config{
			TokenTTL:     cfg.PasswordResetTokenTTL,
			ResetBaseURL: cfg.PasswordResetBaseURL,
			EventTopic:   cfg.EventTopic,
		},
	).WithAudit(audit.New(logger.Logger))

	// 6) handlers + middleware
	resetH := http_handlers.NewResetHandler(resetSvc)
	adminH := http_handlers.NewAdminHandler(resetSvc)

	var healthH *http_handlers.HealthHandler
	if redisCli != nil {
		healthH = http_handlers.NewHealthHandler(store, redisCli)
	} else {
		healthH = http_handlers.NewHealthHandler(store, nil)
	}

	authMW := middleware.Auth(signer, response.WriteError)
	tenantMW := middleware.ResolveTenant(repos.Tenants, response.WriteError)
	tokenTenantMW := middleware.TenantFromResetToken(repos.Tokens, repos.Tenants, response.WriteDetailError)

	// rate limit (fail-open)
	var fwLimiter *redis.FixedWindowLimiter
	if redisCli != nil {
		fwLimiter = redis.NewFixedWindowLimiter(redisCli)
	}

	rl := func(key string, limit int, window time.Duration, writeErr middleware.WriteErrFunc) func(http.Handler) http.Handler {
		if fwLimiter == nil {
			return nil
		}
		return middleware.RateLimitFixedWindow(
			fwLimiter,
			middleware.FixedWindowConfig{
				RouteKey: key,
				Limit:    limit,
				Window:   window,
			},
			writeErr,
		)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health: healthH,
		Reset:  resetH,
		Admin:  adminH,

		RequestIDMW:   middleware.RequestID,
		MetricsMW:     middleware.Metrics,
		ClientIPMW:    middleware.ClientIP(cfg.TrustProxyHeaders),
		SecurityMW:    middleware.SecurityHeaders(cfg.HSTSEnabled),
		BodyLimitMW:   middleware.BodyLimit(int64(cfg.RequestBodyMaxBytes), response.WriteError),
		TenantMW:      tenantMW,
		TokenTenantMW: tokenTenantMW,
		AuthMW:        authMW,

		RLResetRequest: rl("auth.password_reset.request", cfg.ResetRateLimit, cfg.ResetRateWindow, response.WriteError),
		RLResetConfirm: rl("auth.password_reset.confirm", cfg.ConfirmRateLimit, cfg.ResetRateWindow, response.WriteDetailError),
		RLAdmin:        rl("auth.admin.password_regenerate", 60, time.Minute, response.WriteError),
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

func openStore(cfg *config.Config, deps Deps) (Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Logger.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil, nil

	case config.StoreSQL:
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() { _ = db.Close() }

		if cfg.DBAutoMigrate && deps.Migrate != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			err := deps.Migrate(ctx, db)
			cancel()
			if err != nil {
				closeDB()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return postgres.NewStore(db), closeDB, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.Migrate,
		NewRedis:   redis.New,
		NewPublisher: func(cfg *config.Config) (Publisher, error) {
			switch cfg.Broker {
			case config.BrokerRabbit:
				return rabbitmq_pub.NewPublisher(cfg.RabbitURL)
			case config.BrokerNATS:
				return natsbus.NewPublisher(cfg.NATSURL)
			case config.BrokerNoop:
				return memory.NewNoopPublisher(), nil
			default:
				return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
			}
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
