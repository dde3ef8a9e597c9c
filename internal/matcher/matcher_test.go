package matcher

import (
	"context"
	"sort"
	"testing"
	"time"
)

// fakeStore is an in-memory stand-in for store.Store, enough to drive
// the matching algorithm without a live Postgres connection.
type fakeStore struct {
	locales map[int64]string
	partner map[int64]int64
	waiting map[int64]time.Time
	blocked map[[2]int64]bool
	banned  map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		locales: map[int64]string{},
		partner: map[int64]int64{},
		waiting: map[int64]time.Time{},
		blocked: map[[2]int64]bool{},
		banned:  map[int64]bool{},
	}
}

func (f *fakeStore) LocaleOf(ctx context.Context, id int64) (string, error) {
	if l, ok := f.locales[id]; ok {
		return l, nil
	}
	return "en", nil
}

func (f *fakeStore) PartnerOf(ctx context.Context, id int64) (int64, bool, error) {
	p, ok := f.partner[id]
	return p, ok, nil
}

func (f *fakeStore) ClaimEligibleWaiter(ctx context.Context, seeker int64, seekerLocale string) (int64, bool, error) {
	type candidate struct {
		id int64
		ts time.Time
	}
	var candidates []candidate
	for id, ts := range f.waiting {
		if id == seeker {
			continue
		}
		if f.locales[id] != seekerLocale {
			continue
		}
		if f.blocked[[2]int64{seeker, id}] || f.blocked[[2]int64{id, seeker}] {
			continue
		}
		if f.banned[id] {
			continue
		}
		candidates = append(candidates, candidate{id, ts})
	}
	if len(candidates) == 0 {
		return 0, false, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ts.Before(candidates[j].ts) })
	winner := candidates[0]
	delete(f.waiting, winner.id)
	return winner.id, true, nil
}

func (f *fakeStore) BindPair(ctx context.Context, a, b int64) error {
	if _, ok := f.partner[a]; ok {
		return errAlreadyBound
	}
	if _, ok := f.partner[b]; ok {
		return errAlreadyBound
	}
	f.partner[a] = b
	f.partner[b] = a
	return nil
}

func (f *fakeStore) EnqueueIfAbsent(ctx context.Context, id int64) error {
	if _, ok := f.waiting[id]; !ok {
		f.waiting[id] = time.Now()
	}
	return nil
}

var errAlreadyBound = errAlreadyBoundErr("already bound")

type errAlreadyBoundErr string

func (e errAlreadyBoundErr) Error() string { return string(e) }

func TestTryMatch_FIFOAcrossLocales(t *testing.T) {
	fs := newFakeStore()
	fs.locales[1] = "en" // W1
	fs.locales[2] = "es" // W2
	fs.locales[3] = "en" // W3
	fs.locales[100] = "en"

	base := time.Now()
	fs.waiting[1] = base
	fs.waiting[2] = base.Add(time.Second)
	fs.waiting[3] = base.Add(2 * time.Second)

	m := New(fs)
	result, err := m.TryMatch(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched || result.Peer != 1 {
		t.Fatalf("expected match with W1 (id 1), got %+v", result)
	}
	if _, stillWaiting := fs.waiting[2]; !stillWaiting {
		t.Fatal("W2 should remain queued")
	}
	if _, stillWaiting := fs.waiting[3]; !stillWaiting {
		t.Fatal("W3 should remain queued")
	}
	if fs.partner[100] != 1 || fs.partner[1] != 100 {
		t.Fatalf("expected symmetric pair (100,1), got %v", fs.partner)
	}
}

func TestTryMatch_NoEligibleWaiter_Enqueues(t *testing.T) {
	fs := newFakeStore()
	fs.locales[1] = "en"

	m := New(fs)
	result, err := m.TryMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected Waiting, got Matched(%d)", result.Peer)
	}
	if _, waiting := fs.waiting[1]; !waiting {
		t.Fatal("seeker should now be enqueued")
	}
}

func TestTryMatch_BlockExcludesWaiter(t *testing.T) {
	fs := newFakeStore()
	fs.locales[1] = "en" // A
	fs.locales[2] = "en" // B
	fs.waiting[2] = time.Now()
	fs.blocked[[2]int64{1, 2}] = true

	m := New(fs)
	result, err := m.TryMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected Waiting because of block, got Matched(%d)", result.Peer)
	}
	if _, stillWaiting := fs.waiting[2]; !stillWaiting {
		t.Fatal("blocked B should remain queued")
	}
}

func TestTryMatch_AlreadyPaired_ReturnsGuardError(t *testing.T) {
	fs := newFakeStore()
	fs.partner[1] = 2
	fs.partner[2] = 1

	m := New(fs)
	_, err := m.TryMatch(context.Background(), 1)
	if err != ErrAlreadyPaired {
		t.Fatalf("expected ErrAlreadyPaired, got %v", err)
	}
}

func TestTryMatch_BannedWaiterNeverClaimed(t *testing.T) {
	fs := newFakeStore()
	fs.locales[1] = "en"
	fs.locales[2] = "en"
	fs.waiting[2] = time.Now()
	fs.banned[2] = true

	m := New(fs)
	result, err := m.TryMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected Waiting because waiter is banned, got Matched(%d)", result.Peer)
	}
}
