package app

import (
	"context"

	"github.com/jmendes/peerchat/internal/backend"
	"github.com/jmendes/peerchat/internal/bus"
	"github.com/jmendes/peerchat/internal/config"
	"github.com/jmendes/peerchat/internal/download"
	"github.com/jmendes/peerchat/internal/ingest"
	"github.com/jmendes/peerchat/internal/lock"
	"github.com/jmendes/peerchat/internal/logging"
	"github.com/jmendes/peerchat/internal/pending"
	"github.com/jmendes/peerchat/internal/poll"
	"github.com/jmendes/peerchat/internal/session"
	"github.com/jmendes/peerchat/internal/state"
	"github.com/jmendes/peerchat/internal/store"
	"github.com/jmendes/peerchat/internal/thumb"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds what the process must supply to the engine module: the
// session to run under, its config, and the transport adapter.
type Params struct {
	SessionName string
	Config      *config.Config
	Client      backend.Client
}

// Module returns the fx module composing the whole sync engine.
func Module(p Params) fx.Option {
	return fx.Module("peerchat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideState,
			provideThumbCache,
			providePendingTracker,
			provideFlusher,
			provideDownloadTracker,
			provideEngine,
			providePoller,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideState() *state.Container {
	return state.NewContainer()
}

func provideThumbCache() *thumb.Cache {
	return thumb.NewCache()
}

func providePendingTracker() *pending.Tracker {
	return pending.NewTracker(pending.DefaultTTL)
}

func provideFlusher(p Params, db *store.DB, logger *zap.Logger) *ingest.Flusher {
	return ingest.NewFlusher(db, p.Config.FlushDebounce(), logger)
}

func provideDownloadTracker(p Params, db *store.DB, st *state.Container, thumbs *thumb.Cache, logger *zap.Logger) *download.Tracker {
	return download.NewTracker(db, p.Client, st, thumbs, logger)
}

func provideEngine(p Params, db *store.DB, b *bus.Bus, st *state.Container, pt *pending.Tracker, dt *download.Tracker, f *ingest.Flusher, logger *zap.Logger) *ingest.Engine {
	return ingest.NewEngine(db, b, st, pt, dt, f, logger)
}

func providePoller(p Params, db *store.DB, st *state.Container, pt *pending.Tracker, logger *zap.Logger) *poll.Poller {
	return poll.NewPoller(p.Client, db, st, pt, p.Config.PollInterval(), p.Config.PeerFetchTimeout(), logger)
}

func provideApp(db *store.DB, p Params, st *state.Container, pt *pending.Tracker, dt *download.Tracker, f *ingest.Flusher, thumbs *thumb.Cache, logger *zap.Logger) *App {
	return New(db, p.Client, st, pt, dt, f, thumbs, logger)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, engine *ingest.Engine, poller *poll.Poller, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			engine.Start(context.Background())
			poller.Start(context.Background())
			logger.Info("sync engine started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			poller.Stop()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("sync engine stopped")
			return nil
		},
	})
}
