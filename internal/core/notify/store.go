// Package notify defines user-facing alerts raised from timer events.
package notify

import (
	"sync"
	"time"
)

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification represents a single user-facing alert.
type Notification struct {
	ID        int64     `json:"id"`
	Level     Level     `json:"level"`
	TimerID   string    `json:"timer_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink receives notifications as they are raised.
type Sink func(Notification)

// Buffer keeps the most recent notifications in memory.
type Buffer struct {
	mu     sync.Mutex
	limit  int
	nextID int64
	items  []Notification
}

// NewBuffer returns a buffer keeping at most limit notifications.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = 50
	}
	return &Buffer{limit: limit}
}

// Push assigns an id and appends n, evicting the oldest entry when full.
func (b *Buffer) Push(n Notification) Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	n.ID = b.nextID
	b.items = append(b.items, n)
	if len(b.items) > b.limit {
		b.items = b.items[len(b.items)-b.limit:]
	}
	return n
}

// List returns the buffered notifications, oldest first.
func (b *Buffer) List() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}
