package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hay-kot/marktimer/internal/core/config"
	"github.com/hay-kot/marktimer/internal/core/logging"
	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/marktimer"
)

const maxBodyBytes = 1 << 20

// NotificationSource lists recent notifications, newest first.
type NotificationSource interface {
	List(ctx context.Context, limit int) ([]notify.Notification, error)
}

// BufferSource adapts an in-memory buffer to NotificationSource.
type BufferSource struct{ *notify.Buffer }

func (b BufferSource) List(_ context.Context, limit int) ([]notify.Notification, error) {
	items := b.Buffer.List()
	slices.Reverse(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Handler holds API route handlers.
type Handler struct {
	mgr   *marktimer.Manager
	cfg   *config.Config
	notes NotificationSource
}

// NewHandler creates a new Handler. notes may be nil.
func NewHandler(mgr *marktimer.Manager, cfg *config.Config, notes NotificationSource) *Handler {
	return &Handler{mgr: mgr, cfg: cfg, notes: notes}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid JSON body: " + err.Error(), Code: timer.CodeValidation})
		return false
	}
	if err := v.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %w", timer.ErrValidation, err))
		return false
	}
	return true
}

func views(ts []*marktimer.Timer) []TimerView {
	out := make([]TimerView, 0, len(ts))
	for _, t := range ts {
		out = append(out, ViewOf(t.Snapshot()))
	}
	return out
}

// ListTimers handles GET /api/timers. Optional query parameters: match
// (glob over name or id) and state (repeatable).
func (h *Handler) ListTimers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ts, err := h.mgr.Match(q.Get("match"))
	if err != nil {
		writeError(w, err)
		return
	}

	if states := q["state"]; len(states) > 0 {
		keep := ts[:0]
		for _, t := range ts {
			for _, s := range states {
				if t.State() == timer.State(s) {
					keep = append(keep, t)
					break
				}
			}
		}
		ts = keep
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timers": views(ts),
		"total":  len(ts),
	})
}

// CreateTimer handles POST /api/timers.
func (h *Handler) CreateTimer(w http.ResponseWriter, r *http.Request) {
	var req CreateTimerRequest
	if !decode(w, r, &req) {
		return
	}

	params, err := req.Params(h.cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.mgr.Create(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ViewOf(t.Snapshot()))
}

// GetTimer handles GET /api/timers/{id}.
func (h *Handler) GetTimer(w http.ResponseWriter, r *http.Request) {
	t, err := h.mgr.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ViewOf(t.Snapshot()))
}

// DeleteTimer handles DELETE /api/timers/{id}.
func (h *Handler) DeleteTimer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mgr.Remove(logging.WithTimerID(r.Context(), id), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DispatchCommand handles POST /api/timers/{id}/commands and returns the
// timer after the command.
func (h *Handler) DispatchCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.mgr.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req CommandRequest
	if !decode(w, r, &req) {
		return
	}

	cmd, err := req.Command(h.cfg.Timers, func(markID string) (timer.Mark, bool) {
		m, _, ok := t.Configuration().MarkByID(markID)
		return m, ok
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.mgr.Dispatch(logging.WithTimerID(r.Context(), id), id, cmd); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ViewOf(t.Snapshot()))
}

// BatchResponse is the body returned by batch actions.
type BatchResponse struct {
	Command   string            `json:"command"`
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
}

// Batch handles POST /api/batch/{action}?match=glob. Without a match the
// action applies to every timer in a state it is legal from.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	cmd, err := timer.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.mgr.Batch(r.Context(), cmd, r.URL.Query().Get("match"))
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if len(res.Failed) > 0 && len(res.Succeeded) == 0 {
		status = http.StatusConflict
	}
	writeJSON(w, status, BatchResponse{Command: res.Command, Succeeded: res.Succeeded, Failed: res.Errors()})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Stats())
}

// Notifications handles GET /api/notifications?limit=n.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notifications": []notify.Notification{}})
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	items, err := h.notes.List(r.Context(), limit)
	if err != nil {
		writeError(w, errors.Join(timer.ErrPersistence, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}
