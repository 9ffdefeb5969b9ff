package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/marktimer"
)

// findTimer looks a timer up by id, then by case-insensitive name. A name
// shared by several timers is rejected.
func findTimer(mgr *marktimer.Manager, ref string) (*marktimer.Timer, error) {
	if t, err := mgr.Get(ref); err == nil {
		return t, nil
	}

	var found []*marktimer.Timer
	for _, t := range mgr.List() {
		if strings.EqualFold(t.Name(), ref) {
			found = append(found, t)
		}
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("timer %q: %w", ref, timer.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%d timers are named %q, use the id: %w", len(found), ref, timer.ErrValidation)
	}
}

// findSnapshot is findTimer over persisted snapshots.
func findSnapshot(snaps []timer.Snapshot, ref string) (timer.Snapshot, error) {
	var found []timer.Snapshot
	for _, s := range snaps {
		if s.ID() == ref {
			return s, nil
		}
		if strings.EqualFold(s.Configuration.Name, ref) {
			found = append(found, s)
		}
	}

	switch len(found) {
	case 0:
		return timer.Snapshot{}, fmt.Errorf("timer %q: %w", ref, timer.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return timer.Snapshot{}, fmt.Errorf("%d timers are named %q, use the id: %w", len(found), ref, timer.ErrValidation)
	}
}

// filterSnapshots keeps the snapshots whose name or id matches pattern and
// whose state is in states. Empty filters keep everything.
func filterSnapshots(snaps []timer.Snapshot, pattern string, states []timer.State) ([]timer.Snapshot, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, timer.ErrValidation)
	}

	out := make([]timer.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if pattern != "" {
			byName, _ := doublestar.Match(pattern, s.Configuration.Name)
			byID, _ := doublestar.Match(pattern, s.ID())
			if !byName && !byID {
				continue
			}
		}
		if len(states) > 0 && !slices.Contains(states, s.Runtime.State) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func parseStates(raw []string) ([]timer.State, error) {
	out := make([]timer.State, 0, len(raw))
	for _, r := range raw {
		s := timer.State(strings.ToLower(strings.TrimSpace(r)))
		if !s.IsValid() {
			return nil, fmt.Errorf("unknown state %q: %w", r, timer.ErrValidation)
		}
		out = append(out, s)
	}
	return out, nil
}
