package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts timer_id and request_id from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if timerID := GetTimerID(ctx); timerID != "" {
		e.Str("timer_id", timerID)
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		e.Str("request_id", requestID)
	}
}
