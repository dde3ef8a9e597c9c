// Package session derives a user's logical SessionState from Store
// reads on every command. Only {Idle, Waiting, Paired} are ever
// materialized; Matching is a transient label that exists only inside
// matcher.TryMatch (spec.md §4.3).
package session

import "context"

// State is a user's derived chat state.
type State int

const (
	Idle State = iota
	Waiting
	Paired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Paired:
		return "paired"
	default:
		return "unknown"
	}
}

// Store is the subset of store.Store needed to derive state.
type Store interface {
	PartnerOf(ctx context.Context, id int64) (int64, bool, error)
	IsWaiting(ctx context.Context, id int64) (bool, error)
}

// Derive computes the current state for id by reading the Store. It
// never caches — the core has no in-process mirror of pairing state
// (spec.md §3 "Ownership").
func Derive(ctx context.Context, s Store, id int64) (State, int64, error) {
	if partner, ok, err := s.PartnerOf(ctx, id); err != nil {
		return Idle, 0, err
	} else if ok {
		return Paired, partner, nil
	}

	waiting, err := s.IsWaiting(ctx, id)
	if err != nil {
		return Idle, 0, err
	}
	if waiting {
		return Waiting, 0, nil
	}
	return Idle, 0, nil
}
