// Package app wires the storage backend, event bus and timer manager into
// the single object consumed by commands, the HTTP server and the TUI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hay-kot/marktimer/internal/core/config"
	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/kv"
	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/data/db"
	"github.com/hay-kot/marktimer/internal/data/stores"
	"github.com/hay-kot/marktimer/internal/marktimer"
	"github.com/hay-kot/marktimer/pkg/executil"
)

// notificationBufferSize bounds the in-memory notification history used
// when the backend has no database.
const notificationBufferSize = 200

// App is the central entry point for timer operations.
// Commands and the TUI consume App instead of cherry-picking raw dependencies.
type App struct {
	Config  *config.Config
	Bus     *eventbus.EventBus
	Manager *marktimer.Manager
	Backend *stores.Backend

	// Notifications is set when the backend has a database.
	Notifications *stores.NotifyStore
	// Recent holds notifications raised by this process.
	Recent *notify.Buffer

	log    zerolog.Logger
	router *eventbus.NotificationRouter
	sound  *soundHook
}

// Options tune how the App is built.
type Options struct {
	Logger zerolog.Logger
	// Restore loads persisted timers into the manager.
	Restore bool
	// Timer options applied to every timer, after the config defaults.
	Timer []marktimer.Option
	// Manager options, applied after the defaults.
	Manager []marktimer.ManagerOption
	// Executor runs the configured sound command. Defaults to os/exec.
	Executor executil.Executor
}

// StorageOptions maps the storage section of cfg onto backend options.
func StorageOptions(cfg *config.Config) stores.Options {
	return stores.Options{
		Driver:  cfg.Storage.Driver,
		Codec:   cfg.Storage.Codec,
		DataDir: cfg.StorageDir(),
		DSN:     cfg.Storage.DSN,
		SQLite: db.OpenOptions{
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
			BusyTimeout:  cfg.Storage.BusyTimeout,
		},
		RecoverCorrupt: cfg.Storage.RecoverCorrupt,
	}
}

// Open builds an App from cfg. A restore failure for individual timers is
// logged and does not fail Open.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	backend, err := stores.Open(ctx, StorageOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a, err := New(cfg, backend, opts)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	if opts.Restore {
		if _, err := a.Manager.Restore(ctx); err != nil {
			if errors.Is(err, timer.ErrPersistence) && len(a.Manager.List()) == 0 {
				_ = a.Close(ctx)
				return nil, fmt.Errorf("restore timers: %w", err)
			}
			a.log.Warn().Err(err).Msg("some timers could not be restored")
		}
	}

	return a, nil
}

// New builds an App over an already opened backend.
func New(cfg *config.Config, backend *stores.Backend, opts Options) (*App, error) {
	bus := eventbus.New()
	eventbus.RegisterDebugLogger(bus, opts.Logger.With().Str("cmp", "bus").Logger())

	timerOpts := []marktimer.Option{
		marktimer.WithLogger(opts.Logger.With().Str("cmp", "timer").Logger()),
		marktimer.WithAutoResetDelay(cfg.Timers.AutoResetDelay),
	}
	timerOpts = append(timerOpts, opts.Timer...)

	mgrOpts := []marktimer.ManagerOption{
		marktimer.WithTimerOptions(timerOpts...),
		marktimer.WithManagerLogger(opts.Logger.With().Str("cmp", "manager").Logger()),
	}
	mgrOpts = append(mgrOpts, opts.Manager...)

	mgr, err := marktimer.NewManager(bus, backend.KV, mgrOpts...)
	if err != nil {
		bus.Destroy()
		return nil, fmt.Errorf("create manager: %w", err)
	}

	a := &App{
		Config:  cfg,
		Bus:     bus,
		Manager: mgr,
		Backend: backend,
		Recent:  notify.NewBuffer(notificationBufferSize),
		log:     opts.Logger.With().Str("cmp", "app").Logger(),
	}

	sinks := []notify.Sink{func(n notify.Notification) { a.Recent.Push(n) }}
	if backend.DB != nil {
		a.Notifications = stores.NewNotifyStore(backend.DB)
		sinks = append(sinks, a.Notifications.Sink(context.Background(), func(err error) {
			a.log.Warn().Err(err).Msg("save notification")
		}))
	}

	a.router = eventbus.NewNotificationRouter(bus, func(n notify.Notification) {
		for _, s := range sinks {
			s(n)
		}
	})
	if err := a.router.Register(); err != nil {
		_ = mgr.Close(context.Background())
		bus.Destroy()
		return nil, err
	}

	if cfg.Timers.SoundCommand != "" {
		exec := opts.Executor
		if exec == nil {
			exec = &executil.RealExecutor{}
		}
		a.sound = newSoundHook(exec, cfg.Timers.SoundCommand, mgr, a.log)
		if err := a.sound.register(bus); err != nil {
			a.router.Close()
			_ = mgr.Close(context.Background())
			bus.Destroy()
			return nil, err
		}
	}

	return a, nil
}

// Store returns the typed view over persisted snapshots.
func (a *App) Store() *kv.TypedKV[timer.Snapshot] {
	return kv.Scoped[timer.Snapshot](a.Backend.KV, marktimer.Namespace)
}

// Close persists and releases every timer, then the bus and the backend.
func (a *App) Close(ctx context.Context) error {
	a.router.Close()
	if a.sound != nil {
		a.sound.close()
	}
	errs := []error{a.Manager.Close(ctx)}
	a.Bus.Destroy()
	errs = append(errs, a.Backend.Close())
	return errors.Join(errs...)
}
