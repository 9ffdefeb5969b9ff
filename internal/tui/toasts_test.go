package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/pkg/tuitest"
)

func TestToastController_PushEvictsOldest(t *testing.T) {
	c := NewToastController()
	for i := range defaultMaxToasts + 2 {
		c.Push(notify.Notification{ID: int64(i)})
	}

	toasts := c.Toasts()
	require.Len(t, toasts, defaultMaxToasts)
	assert.Equal(t, int64(2), toasts[0].notification.ID)
}

func TestToastController_TickAndDismiss(t *testing.T) {
	c := NewToastController()
	c.Push(notify.Notification{Message: "first"})
	c.Tick(defaultToastTTL / 2)
	c.Push(notify.Notification{Message: "second"})

	c.Tick(defaultToastTTL / 2)
	require.Len(t, c.Toasts(), 1)
	assert.Equal(t, "second", c.Toasts()[0].notification.Message)

	c.Dismiss()
	assert.False(t, c.HasToasts())
	c.Dismiss()
}

func TestToastController_View(t *testing.T) {
	c := NewToastController()
	assert.Empty(t, c.View(80))

	c.Push(notify.Notification{Level: notify.LevelError, Message: "stop failed"})
	c.Push(notify.Notification{Level: notify.LevelInfo, Message: "tea completed"})

	view := tuitest.StripANSI(c.View(80))
	assert.Contains(t, view, "stop failed")
	assert.Contains(t, view, "tea completed")
	assert.Less(t, strings.Index(view, "stop failed"), strings.Index(view, "tea completed"), "oldest first")
}
