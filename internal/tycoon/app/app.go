// Package app assembles the simulation from configuration: store, job
// locks, broadcasters, AI collaborator, jobs, scheduler, game service and
// the admin server. Both binaries build on it.
package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/ai"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/auth"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/catalog"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/config"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/controller"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/db"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/handlers"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/jobs"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/lock"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/scheduler"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/tracing"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Repo      *db.Repository
	Catalog   *catalog.Catalog
	Events    events.Broadcaster
	Registry  *jobs.Registry
	Scheduler *scheduler.Scheduler
	Game      *controller.GameService

	// closers run in reverse order on Close.
	closers []func()
}

// New builds every component named by cfg. On error, whatever was already
// opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (a *App, err error) {
	a = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	shutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Observability.TracingEnabled,
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.TracingEndpoint,
		SampleRate:  cfg.Observability.TracingSampleRate,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	})

	if a.Repo, err = OpenRepository(ctx, cfg.Database, logger); err != nil {
		return nil, err
	}
	a.onClose(func() { _ = a.Repo.Close() })

	if cfg.Simulation.CatalogDir != "" {
		a.Catalog, err = catalog.LoadDir(cfg.Simulation.CatalogDir)
	} else {
		a.Catalog, err = catalog.Load()
	}
	if err != nil {
		return nil, err
	}

	locker, err := a.buildLocker(ctx)
	if err != nil {
		return nil, err
	}
	if a.Events, err = a.buildBroadcaster(ctx); err != nil {
		return nil, err
	}

	generator := ai.NewClient(ai.Config{
		Enabled:     cfg.AI.Enabled,
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Timeout:     cfg.AI.Timeout,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	}, logger)
	bonuses := bonus.NewResolver(a.Repo, logger)

	a.Registry = jobs.NewRegistry(&jobs.Env{
		Repo:     a.Repo,
		Bonuses:  bonuses,
		Catalog:  a.Catalog,
		Events:   a.Events,
		AI:       generator,
		Settings: Settings(cfg.Simulation),
		Logger:   logger,
		Rand:     jobs.NewRandom(cfg.Simulation.Seed),
	})
	a.Scheduler, err = scheduler.New(a.Registry.All(), locker, scheduler.Config{
		Interval:        cfg.Simulation.TickInterval,
		TicksPerGameDay: cfg.Simulation.TicksPerGameDay,
		Cadence:         cfg.Simulation.Cadence,
		LockTTL:         cfg.Simulation.LockTTL,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.Game = controller.NewGameService(a.Repo, bonuses, a.Catalog, generator, a.Events, logger)

	logger.Info("Simulation assembled",
		zap.String("env", cfg.App.Env),
		zap.String("db", cfg.Database.Driver),
		zap.String("lock", cfg.Lock.Backend),
		zap.Strings("jobs", a.Registry.Names()),
	)
	return a, nil
}

// OpenRepository opens the configured store and migrates its schema.
func OpenRepository(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*db.Repository, error) {
	switch cfg.Driver {
	case "sqlite":
		return db.NewSQLiteRepository(ctx, cfg.SQLitePath)
	case "postgres":
		return db.NewRepository(ctx, &db.Config{
			Host:            cfg.Host,
			Port:            cfg.Port,
			User:            cfg.User,
			Password:        cfg.Password,
			DBName:          cfg.Name,
			SSLMode:         cfg.SSLMode,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnectTimeout:  cfg.ConnectTimeout,
			LogLevel:        cfg.LogLevel,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Settings converts the simulation section into job settings.
func Settings(s config.SimulationConfig) jobs.Settings {
	out := jobs.DefaultSettings()
	out.BaseIncomePerTick = decimal.NewFromFloat(s.BaseIncomePerTick)
	out.BankruptcyThreshold = decimal.NewFromFloat(s.BankruptcyThreshold)
	out.ReputationPenaltyPerDifficulty = s.ReputationPenaltyPerDifficulty
	out.QuestExpiryReputationPenalty = s.QuestExpiryReputationPenalty
	out.IdleEnergyRecovery = s.IdleEnergyRecovery
	out.IdleMoraleRecovery = s.IdleMoraleRecovery
	out.BugSpawnChance = s.BugSpawnChance
	out.MarketEventChance = s.MarketEventChance
	out.AIEventShare = s.AIEventShare
	if s.MarketEventDuration > 0 {
		out.MarketEventDuration = s.MarketEventDuration
	}
	return out
}

func (a *App) buildLocker(ctx context.Context) (lock.Locker, error) {
	cfg := a.Config
	switch cfg.Lock.Backend {
	case "redis":
		l, err := lock.NewRedisLocker(ctx, lock.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = l.Close() })
		return l, nil
	case "postgres":
		dsn := (&db.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		}).DSN()
		l, err := lock.NewPostgresLocker(ctx, dsn, a.Logger)
		if err != nil {
			return nil, err
		}
		a.onClose(l.Close)
		return l, nil
	default:
		return lock.NewMemoryLocker(), nil
	}
}

func (a *App) buildBroadcaster(ctx context.Context) (events.Broadcaster, error) {
	cfg := a.Config
	var fanout events.Fanout
	if cfg.Kafka.Enabled {
		p := events.NewProducer(ctx, events.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			Partitions:   cfg.Kafka.Partitions,
			QueueSize:    cfg.Kafka.QueueSize,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, a.Logger)
		a.onClose(p.Close)
		fanout = append(fanout, p)
	}
	if cfg.Discord.Enabled {
		d, err := events.NewDiscordNotifier(events.DiscordConfig{
			WebhookID:    cfg.Discord.WebhookID,
			WebhookToken: cfg.Discord.WebhookToken,
			Username:     cfg.Discord.Username,
			Events:       cfg.Discord.Events,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.onClose(d.Close)
		fanout = append(fanout, d)
	}
	if len(fanout) == 0 {
		return events.Nop{}, nil
	}
	return fanout, nil
}

// NewServer builds the admin server over the scheduler, with JWT checks on
// the job-triggering operations of both transports.
func (a *App) NewServer(ctx context.Context) (*handlers.Server, error) {
	cfg := a.Config
	if cfg.Auth.JWTSecret == "" {
		a.Logger.Warn("auth.jwt_secret is empty, job triggers will be rejected")
	}
	interceptor := auth.NewAuthInterceptor(cfg.Auth.JWTSecret)
	server := handlers.NewServer(cfg.Server.GRPCPort, cfg.Server.HTTPPort, a.Logger, grpc.UnaryInterceptor(interceptor.Unary()))

	h := handlers.NewJobHandler(a.Scheduler, a.Logger)
	server.RegisterGRPCHandler(h)
	err := server.RegisterHTTPGateway(ctx, h,
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		cfg.Auth.JWTSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register HTTP gateway: %w", err)
	}
	return server, nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases everything New opened, last opened first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
