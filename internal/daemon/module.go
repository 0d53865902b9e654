package daemon

import (
	"context"
	"os"
	"time"

	"github.com/matheus3301/hookchat/internal/api"
	"github.com/matheus3301/hookchat/internal/bus"
	"github.com/matheus3301/hookchat/internal/config"
	"github.com/matheus3301/hookchat/internal/lock"
	"github.com/matheus3301/hookchat/internal/logging"
	"github.com/matheus3301/hookchat/internal/notify"
	"github.com/matheus3301/hookchat/internal/observability"
	"github.com/matheus3301/hookchat/internal/profile"
	"github.com/matheus3301/hookchat/internal/store"
	intsync "github.com/matheus3301/hookchat/internal/sync"
	"github.com/matheus3301/hookchat/internal/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // nil loads config.toml and HOOKCHAT_* variables
	Console     bool           // also log to stderr
}

// Storage is the state mirror handed to the synchronizer. DB is nil when
// the daemon runs on the in-memory fallback.
type Storage struct {
	Store intsync.Store
	Mode  string
	DB    *store.DB
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStorage,
			provideTransport,
			provideSynchronizer,
			provideNotifier,
			provideChatService,
			NewServer,
			NewMetricsServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	config.LoadEnv(profile.EnvPath())
	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:    profile.LogPath(p.ProfileName),
		Profile: p.ProfileName,
		Level:   zapcore.InfoLevel,
		Console: p.Console,
	})
}

func provideBus(logger *zap.Logger) *bus.Bus {
	return bus.New(logger.Named("bus"))
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.LockPath(p.ProfileName), p.ProfileName)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired", zap.Int("pid", l.Owner().PID))
	return l, nil
}

// provideStorage opens and migrates the SQLite store. Any failure falls back
// to the in-memory store so the daemon still runs, without durability.
// The lock is taken first so only one process migrates the file.
func provideStorage(p Params, _ *lock.Lock, logger *zap.Logger) *Storage {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		logger.Error("store unavailable, using memory", zap.String("path", dbPath), zap.Error(err))
		return &Storage{Store: store.NewMemory(), Mode: StoreMemory}
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		logger.Error("migration failed, using memory", zap.Error(err))
		return &Storage{Store: store.NewMemory(), Mode: StoreMemory}
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return &Storage{Store: store.NewDurable(db, logger), Mode: StoreSQLite, DB: db}
}

func provideTransport(cfg *config.Config, logger *zap.Logger) *webhook.Client {
	return webhook.New(webhook.Options{
		SendURL: cfg.Webhook.SendURL,
		PollURL: cfg.Webhook.PollURL,
		Identity: webhook.Identity{
			ID:    cfg.Identity.ID,
			Name:  cfg.Identity.Name,
			Phone: cfg.Identity.Phone,
		},
		SendTimeout: cfg.Webhook.SendTimeout.Duration,
		PollTimeout: cfg.Webhook.PollTimeout.Duration,
		Logger:      logger,
	})
}

func provideSynchronizer(cfg *config.Config, st *Storage, transport *webhook.Client, b *bus.Bus, logger *zap.Logger) *intsync.Synchronizer {
	return intsync.New(intsync.Options{
		Store:          st.Store,
		Transport:      transport,
		Bus:            b,
		Logger:         logger,
		Metrics:        observability.SyncMetrics{},
		PollInterval:   cfg.Poll.Interval.Duration,
		DeliveredDelay: cfg.Delivery.DeliveredDelay.Duration,
		ReadDelay:      cfg.Delivery.ReadDelay.Duration,
		MaxLength:      cfg.Messages.MaxLength,
	})
}

func provideNotifier(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *notify.Notifier {
	var sound notify.Sound
	if cfg.Notify.Bell {
		sound = notify.Bell{W: os.Stderr}
	}
	alerters := notify.Multi{notify.WriterAlerter{W: os.Stderr}}
	if cfg.Notify.Command != "" {
		alerters = append(alerters, notify.CommandAlerter{Name: cfg.Notify.Command})
	}
	return notify.New(b, intsync.EventMessageReceived, sound, alerters, logger)
}

func provideChatService(p Params, cfg *config.Config, st *Storage, s *intsync.Synchronizer, logger *zap.Logger) *api.ChatService {
	info := api.Info{
		Profile:   p.ProfileName,
		StoreMode: st.Mode,
		SendURL:   cfg.Webhook.SendURL,
		PollURL:   cfg.Webhook.PollURL,
	}
	if st.DB != nil {
		info.Stored = st.DB
	}
	return api.NewChatService(s, info, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, metrics *MetricsServer, lk *lock.Lock, st *Storage, s *intsync.Synchronizer, notifier *notify.Notifier, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			s.Load()
			notifier.Start()
			s.Start(context.Background())

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			metrics.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			s.Stop()
			waitInflight(ctx, s, logger)
			notifier.Stop()
			metrics.Stop(ctx)
			if st.DB != nil {
				if err := st.DB.Close(); err != nil {
					logger.Warn("error closing store", zap.Error(err))
				}
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}

// waitInflight lets pending sends finish until ctx expires.
func waitInflight(ctx context.Context, s *intsync.Synchronizer, logger *zap.Logger) {
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	start := time.Now()
	select {
	case <-done:
		logger.Info("in-flight sends drained", zap.Duration("took", time.Since(start)))
	case <-ctx.Done():
		logger.Warn("shutdown before in-flight sends finished", zap.Error(ctx.Err()))
	}
}
