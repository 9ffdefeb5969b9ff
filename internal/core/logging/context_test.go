package logging

import (
	"context"
	"testing"
)

func TestWithTimerID(t *testing.T) {
	ctx := context.Background()
	timerID := "t-123"

	ctx = WithTimerID(ctx, timerID)
	got := GetTimerID(ctx)

	if got != timerID {
		t.Errorf("GetTimerID() = %q, want %q", got, timerID)
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "req-456"

	ctx = WithRequestID(ctx, requestID)
	got := GetRequestID(ctx)

	if got != requestID {
		t.Errorf("GetRequestID() = %q, want %q", got, requestID)
	}
}

func TestGetTimerID_NotPresent(t *testing.T) {
	ctx := context.Background()
	got := GetTimerID(ctx)

	if got != "" {
		t.Errorf("GetTimerID() = %q, want empty string", got)
	}
}

func TestGetRequestID_NotPresent(t *testing.T) {
	ctx := context.Background()
	got := GetRequestID(ctx)

	if got != "" {
		t.Errorf("GetRequestID() = %q, want empty string", got)
	}
}

func TestBothIDs(t *testing.T) {
	ctx := context.Background()
	timerID := "t1"
	requestID := "req-1"

	ctx = WithTimerID(ctx, timerID)
	ctx = WithRequestID(ctx, requestID)

	if got := GetTimerID(ctx); got != timerID {
		t.Errorf("GetTimerID() = %q, want %q", got, timerID)
	}

	if got := GetRequestID(ctx); got != requestID {
		t.Errorf("GetRequestID() = %q, want %q", got, requestID)
	}
}
