// Package store owns every durable table behind the matching and relay
// subsystem: all_users, active_chats, waiting_queue, user_blocks, and
// global_bans. No other package mutates these tables directly — the
// Matcher and Relay read derived state only through the operations
// defined here, matching the teacher's DB-access-behind-one-package
// convention (internal/db + internal/service/syncservice).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ErrPairConflict is returned by BindPair when either side is already
// paired — the partner_id UNIQUE constraint fired.
var ErrPairConflict = errors.New("store: one of the users already has a partner")

// Store wraps a pgx connection pool and exposes the matching/relay
// subsystem's atomic primitives (spec.md §4.1).
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-open pool. Schema creation happens in Migrate.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the five tables if they don't already exist, mirroring
// the teacher's fail-fast-at-startup philosophy: a broken schema should
// surface immediately, not on the first matching attempt.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS all_users (
			user_id BIGINT PRIMARY KEY,
			language VARCHAR(5) NOT NULL DEFAULT 'en'
		)`,
		`CREATE TABLE IF NOT EXISTS active_chats (
			user_id BIGINT PRIMARY KEY,
			partner_id BIGINT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS waiting_queue (
			user_id BIGINT PRIMARY KEY,
			enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS user_blocks (
			blocker_id BIGINT NOT NULL,
			blocked_id BIGINT NOT NULL,
			PRIMARY KEY (blocker_id, blocked_id)
		)`,
		`CREATE TABLE IF NOT EXISTS global_bans (
			user_id BIGINT PRIMARY KEY
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	log.Info().Msg("store: schema verified")
	return nil
}

// EnsureUser upserts a user row, overwriting the locale on every call —
// spec.md §4.1: "upsert; sets or overwrites the locale."
func (s *Store) EnsureUser(ctx context.Context, id int64, locale string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO all_users (user_id, language) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET language = EXCLUDED.language`,
		id, locale)
	return err
}

// LocaleOf returns the stored locale for id, or "en" if the user is
// somehow unknown (EnsureUser should always run first).
func (s *Store) LocaleOf(ctx context.Context, id int64) (string, error) {
	var locale string
	err := s.pool.QueryRow(ctx, `SELECT language FROM all_users WHERE user_id = $1`, id).Scan(&locale)
	if errors.Is(err, pgx.ErrNoRows) {
		return "en", nil
	}
	return locale, err
}

// IsBanned reports global_bans membership.
func (s *Store) IsBanned(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM global_bans WHERE user_id = $1)`, id).Scan(&exists)
	return exists, err
}

// PartnerOf returns the active partner id, or (0, false) if id is not
// in active_chats.
func (s *Store) PartnerOf(ctx context.Context, id int64) (int64, bool, error) {
	var partner int64
	err := s.pool.QueryRow(ctx, `SELECT partner_id FROM active_chats WHERE user_id = $1`, id).Scan(&partner)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return partner, true, nil
}

// IsWaiting reports waiting_queue membership.
func (s *Store) IsWaiting(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM waiting_queue WHERE user_id = $1)`, id).Scan(&exists)
	return exists, err
}

// EnqueueIfAbsent is a no-op if id is already waiting.
func (s *Store) EnqueueIfAbsent(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO waiting_queue (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, id)
	return err
}

// Dequeue is a no-op if id is absent from waiting_queue.
func (s *Store) Dequeue(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM waiting_queue WHERE user_id = $1`, id)
	return err
}

// ClaimEligibleWaiter is the heart of the matcher (spec.md §4.1). In one
// round trip it selects the oldest eligible waiter and deletes the row,
// returning the claimed id. Eligibility: different user, same locale,
// no block either direction, not globally banned.
//
// The DELETE...WHERE user_id = (subquery ... FOR UPDATE SKIP LOCKED)
// shape is the row-locking read-modify-write the design notes call out
// as the preferred serialization primitive: two concurrent seekers each
// lock a different candidate row (or find none left), so at most one of
// them can claim any given waiter.
func (s *Store) ClaimEligibleWaiter(ctx context.Context, seeker int64, seekerLocale string) (int64, bool, error) {
	var peer int64
	err := s.pool.QueryRow(ctx, `
		DELETE FROM waiting_queue
		WHERE user_id = (
			SELECT w.user_id
			FROM waiting_queue w
			JOIN all_users au ON au.user_id = w.user_id
			WHERE w.user_id != $1
			  AND au.language = $2
			  AND NOT EXISTS (
			      SELECT 1 FROM user_blocks b
			      WHERE (b.blocker_id = $1 AND b.blocked_id = w.user_id)
			         OR (b.blocker_id = w.user_id AND b.blocked_id = $1)
			  )
			  AND NOT EXISTS (SELECT 1 FROM global_bans gb WHERE gb.user_id = w.user_id)
			ORDER BY w.enqueued_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING user_id
	`, seeker, seekerLocale).Scan(&peer)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return peer, true, nil
}

// BindPair inserts both symmetric active_chats rows in one statement.
// The partner_id UNIQUE constraint enforces P2: a concurrent attempt to
// bind either side as someone else's partner fails with ErrPairConflict.
func (s *Store) BindPair(ctx context.Context, a, b int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO active_chats (user_id, partner_id) VALUES ($1, $2), ($2, $1)`, a, b)
	if err != nil {
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
			return ErrPairConflict
		}
		return err
	}
	return nil
}

// EndPair deletes both symmetric rows for id's pair in one transaction
// and returns the former partner, preserving invariant P1.
func (s *Store) EndPair(ctx context.Context, id int64) (int64, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var partner int64
	err = tx.QueryRow(ctx, `DELETE FROM active_chats WHERE user_id = $1 RETURNING partner_id`, id).Scan(&partner)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, tx.Commit(ctx)
	}
	if err != nil {
		return 0, false, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM active_chats WHERE user_id = $1`, partner); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	return partner, true, nil
}

// AddBlock idempotently records that blocker never wants to be matched
// with blocked again.
func (s *Store) AddBlock(ctx context.Context, blocker, blocked int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_blocks (blocker_id, blocked_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		blocker, blocked)
	return err
}

// AddGlobalBan idempotently bans id and cascades eviction from
// waiting_queue and active_chats (spec.md §8 P6).
func (s *Store) AddGlobalBan(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO global_bans (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM waiting_queue WHERE user_id = $1`, id); err != nil {
		return err
	}

	var partner int64
	err = tx.QueryRow(ctx, `DELETE FROM active_chats WHERE user_id = $1 RETURNING partner_id`, id).Scan(&partner)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err == nil {
		if _, err := tx.Exec(ctx, `DELETE FROM active_chats WHERE user_id = $1`, partner); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// WaitingSince exposes the enqueued_at of a waiter.
func (s *Store) WaitingSince(ctx context.Context, id int64) (time.Time, error) {
	var ts time.Time
	err := s.pool.QueryRow(ctx, `SELECT enqueued_at FROM waiting_queue WHERE user_id = $1`, id).Scan(&ts)
	return ts, err
}

// AllUserIDs returns every registered user, for the admin broadcast entry
// point (spec.md §6 — the fan-out itself is out of core scope).
func (s *Store) AllUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM all_users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
