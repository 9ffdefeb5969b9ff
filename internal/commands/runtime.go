package commands

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hay-kot/marktimer/internal/app"
	"github.com/hay-kot/marktimer/internal/core/kv"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/data/stores"
	"github.com/hay-kot/marktimer/internal/marktimer"
)

// Runtime opens the App on first use so commands that only read the
// config or the store never build a manager.
type Runtime struct {
	flags *Flags

	mu  sync.Mutex
	app *app.App
}

func NewRuntime(flags *Flags) *Runtime {
	return &Runtime{flags: flags}
}

// App returns the shared App, restoring persisted timers on first call.
func (r *Runtime) App(ctx context.Context) (*app.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.app != nil {
		return r.app, nil
	}
	if r.flags.Config == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	a, err := app.Open(ctx, r.flags.Config, app.Options{Logger: r.flags.Logger, Restore: true})
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}

// Close persists and closes the App if it was opened.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.app == nil {
		return nil
	}
	err := r.app.Close(ctx)
	r.app = nil
	return err
}

// Snapshots reads every persisted timer without starting a manager. The
// result is ordered by creation time.
func (r *Runtime) Snapshots(ctx context.Context) ([]timer.Snapshot, error) {
	if r.flags.Config == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	backend, err := stores.Open(ctx, app.StorageOptions(r.flags.Config))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = backend.Close() }()

	snaps, err := kv.Scoped[timer.Snapshot](backend.KV, marktimer.Namespace).List(ctx)
	if snaps == nil && err != nil {
		return nil, fmt.Errorf("list timers: %w", err)
	}
	if err != nil {
		r.flags.Logger.Warn().Err(err).Msg("some timers could not be read")
	}

	out := make([]timer.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Configuration, out[j].Configuration
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

// Snapshot returns the persisted timer with id.
func (r *Runtime) Snapshot(ctx context.Context, id string) (timer.Snapshot, error) {
	snaps, err := r.Snapshots(ctx)
	if err != nil {
		return timer.Snapshot{}, err
	}
	for _, s := range snaps {
		if s.ID() == id {
			return s, nil
		}
	}
	return timer.Snapshot{}, fmt.Errorf("timer %q: %w", id, timer.ErrNotFound)
}
