package logging

import "context"

type contextKey string

const (
	timerIDKey   contextKey = "timer_id"
	requestIDKey contextKey = "request_id"
)

// WithTimerID adds a timer ID to the context.
func WithTimerID(ctx context.Context, timerID string) context.Context {
	return context.WithValue(ctx, timerIDKey, timerID)
}

// WithRequestID adds an HTTP request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetTimerID retrieves the timer ID from the context.
// Returns empty string if not present.
func GetTimerID(ctx context.Context) string {
	if id, ok := ctx.Value(timerIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
