// Package sse streams timer events to HTTP clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
)

const (
	publishBuffer = 256
	clientBuffer  = 64
)

// client is one connected stream with its filter.
type client struct {
	ch      chan []byte
	timerID string
	skip    map[eventbus.Kind]bool
}

func (c *client) wants(e eventbus.Event) bool {
	if c.timerID != "" && c.timerID != e.TimerID {
		return false
	}
	return !c.skip[e.Kind()]
}

// Broker fans bus events out to SSE clients.
//
// A single loop goroutine owns the client set. Public methods talk to it
// through channels. Publish never blocks the caller: bus handlers run on
// the timer's goroutine, so a full buffer drops the event instead.
type Broker struct {
	log zerolog.Logger

	subscribeCh   chan *client
	unsubscribeCh chan *client
	publishCh     chan eventbus.Event
	countReqCh    chan chan int

	sub *eventbus.Subscription

	dropped atomic.Int64
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker loop.
func NewBroker(log zerolog.Logger) *Broker {
	b := &Broker{
		log:           log,
		subscribeCh:   make(chan *client),
		unsubscribeCh: make(chan *client),
		publishCh:     make(chan eventbus.Event, publishBuffer),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// Attach forwards every event on bus to the broker until Close.
func (b *Broker) Attach(bus *eventbus.EventBus) error {
	sub, err := bus.SubscribeAll(b.Publish)
	if err != nil {
		return fmt.Errorf("attach broker: %w", err)
	}
	b.sub = sub
	return nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[*client]struct{})

	broadcast := func(e eventbus.Event) {
		data, err := json.Marshal(e)
		if err != nil {
			b.log.Error().Err(err).Str("event", string(e.Kind())).Msg("encode event")
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Kind(), data))

		for c := range clients {
			if !c.wants(e) {
				continue
			}
			select {
			case c.ch <- raw:
			default:
				// slow client
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for c := range clients {
				close(c.ch)
			}
			return

		case c := <-b.subscribeCh:
			clients[c] = struct{}{}

		case c := <-b.unsubscribeCh:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.ch)
			}

		case e := <-b.publishCh:
			broadcast(e)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close detaches from the bus, stops the loop and closes every client.
func (b *Broker) Close() {
	b.sub.Unsubscribe()
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

func (b *Broker) subscribe(timerID string, skip map[eventbus.Kind]bool) *client {
	c := &client{ch: make(chan []byte, clientBuffer), timerID: timerID, skip: skip}
	if b.closed.Load() {
		close(c.ch)
		return c
	}

	select {
	case b.subscribeCh <- c:
	case <-b.stopped:
		close(c.ch)
	}
	return c
}

func (b *Broker) unsubscribe(c *client) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- c:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Dropped returns how many events were discarded because the publish
// buffer was full.
func (b *Broker) Dropped() int64 { return b.dropped.Load() }

// Publish queues e for every interested client.
func (b *Broker) Publish(e eventbus.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	default:
		if b.dropped.Add(1) == 1 {
			b.log.Warn().Msg("sse publish buffer full, dropping events")
		}
	}
}

// ServeHTTP streams events to the caller.
//
// Query parameters:
//
//	timer  only events of this timer id
//	skip   comma separated event kinds to leave out, e.g. timer.ticked
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	skip := map[eventbus.Kind]bool{}
	for _, k := range strings.Split(q.Get("skip"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			skip[eventbus.Kind(k)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := b.subscribe(q.Get("timer"), skip)
	defer b.unsubscribe(c)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
