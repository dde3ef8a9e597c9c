// Package matcher implements spec.md §4.2's single operation: atomically
// claim an eligible waiter or enqueue the seeker.
package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrAlreadyPaired is the guard violation for a seeker who is already in
// an active chat — the Dispatcher should have rejected this before
// calling TryMatch (spec.md §4.2 edge cases).
var ErrAlreadyPaired = errors.New("matcher: seeker is already paired")

// Store is the subset of store.Store the matcher needs, expressed as an
// interface so tests can substitute an in-memory fake without standing
// up Postgres for every case.
type Store interface {
	LocaleOf(ctx context.Context, id int64) (string, error)
	PartnerOf(ctx context.Context, id int64) (int64, bool, error)
	ClaimEligibleWaiter(ctx context.Context, seeker int64, seekerLocale string) (int64, bool, error)
	BindPair(ctx context.Context, a, b int64) error
	EnqueueIfAbsent(ctx context.Context, id int64) error
}

// Result is the outcome of TryMatch: either a peer was found and bound,
// or the seeker is now waiting.
type Result struct {
	Matched bool
	Peer    int64
}

// Matcher runs the matching algorithm against a Store.
type Matcher struct {
	Store Store
}

// New constructs a Matcher over the given Store.
func New(s Store) *Matcher {
	return &Matcher{Store: s}
}

// TryMatch implements spec.md §4.2's algorithm: claim the oldest
// eligible waiter and bind a pair, or enqueue the seeker and report
// Waiting. Fails loudly with ErrAlreadyPaired if the seeker already has
// an active partner, since Matcher is not responsible for tearing down
// an existing pair (that's Session FSM's "next"/"stop" transitions).
func (m *Matcher) TryMatch(ctx context.Context, seeker int64) (Result, error) {
	if _, paired, err := m.Store.PartnerOf(ctx, seeker); err != nil {
		return Result{}, fmt.Errorf("matcher: guard read: %w", err)
	} else if paired {
		return Result{}, ErrAlreadyPaired
	}

	locale, err := m.Store.LocaleOf(ctx, seeker)
	if err != nil {
		return Result{}, fmt.Errorf("matcher: locale lookup: %w", err)
	}

	peer, found, err := m.Store.ClaimEligibleWaiter(ctx, seeker, locale)
	if err != nil {
		return Result{}, fmt.Errorf("matcher: claim: %w", err)
	}

	if found {
		if err := m.Store.BindPair(ctx, seeker, peer); err != nil {
			return Result{}, fmt.Errorf("matcher: bind: %w", err)
		}
		log.Info().Int64("seeker", seeker).Int64("peer", peer).Str("locale", locale).Msg("match found")
		return Result{Matched: true, Peer: peer}, nil
	}

	if err := m.Store.EnqueueIfAbsent(ctx, seeker); err != nil {
		return Result{}, fmt.Errorf("matcher: enqueue: %w", err)
	}
	log.Info().Int64("seeker", seeker).Str("locale", locale).Msg("added to waiting queue")
	return Result{Matched: false}, nil
}
