package marktimer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/marktimer/internal/core/kv"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

const persistTimeout = 5 * time.Second

type persistOp struct {
	delete   bool
	snapshot timer.Snapshot
}

// persister writes snapshots on a single goroutine. Writes for one timer
// coalesce: only the latest pending operation per id is performed, in the
// order ids were first queued.
type persister struct {
	store *kv.TypedKV[timer.Snapshot]
	log   zerolog.Logger

	mu       sync.Mutex
	pending  map[string]persistOp
	order    []string
	inflight bool
	barriers []chan struct{}
	closed   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newPersister(store *kv.TypedKV[timer.Snapshot], log zerolog.Logger) *persister {
	p := &persister{
		store:   store,
		log:     log,
		pending: make(map[string]persistOp),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) save(s timer.Snapshot) {
	p.enqueue(s.ID(), persistOp{snapshot: s})
}

func (p *persister) remove(id string) {
	p.enqueue(id, persistOp{delete: true})
}

func (p *persister) enqueue(id string, op persistOp) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warn().Str("timer_id", id).Msg("persistence closed, dropping write")
		return
	}
	if _, queued := p.pending[id]; !queued {
		p.order = append(p.order, id)
	}
	p.pending[id] = op
	p.mu.Unlock()

	p.signal()
}

func (p *persister) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		if len(p.order) == 0 {
			p.inflight = false
			barriers := p.barriers
			p.barriers = nil
			p.mu.Unlock()

			for _, b := range barriers {
				close(b)
			}
			return
		}

		id := p.order[0]
		p.order = p.order[1:]
		op := p.pending[id]
		delete(p.pending, id)
		p.inflight = true
		p.mu.Unlock()

		p.write(id, op)
	}
}

func (p *persister) write(id string, op persistOp) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var err error
	if op.delete {
		err = p.store.Delete(ctx, id)
	} else {
		err = p.store.Set(ctx, id, op.snapshot)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", timer.ErrPersistence, err)
		p.log.Error().Err(err).Str("timer_id", id).Bool("delete", op.delete).Msg("persist snapshot")
	}
}

// flush blocks until every write queued before the call has completed.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	if len(p.order) == 0 && !p.inflight {
		p.mu.Unlock()
		return nil
	}
	b := make(chan struct{})
	p.barriers = append(p.barriers, b)
	p.mu.Unlock()

	p.signal()

	select {
	case <-b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting writes, drains the queue and waits for the
// writer to exit.
func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
