package dispatcher

import (
	"context"
	"testing"

	"github.com/randompartner/chatrelay/internal/matcher"
	"github.com/randompartner/chatrelay/internal/relay"
)

// fakeStore backs Store, matcher.Store, and relay.Store at once — the
// three packages Dispatcher wires together all read/write the same
// underlying tables in the real implementation.
type fakeStore struct {
	banned    map[int64]bool
	partner   map[int64]int64
	waiting   map[int64]bool
	locales   map[int64]string
	blocks    []([2]int64)
	globalBan []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		banned:  map[int64]bool{},
		partner: map[int64]int64{},
		waiting: map[int64]bool{},
		locales: map[int64]string{},
	}
}

func (f *fakeStore) EnsureUser(ctx context.Context, id int64, locale string) error {
	f.locales[id] = locale
	return nil
}
func (f *fakeStore) IsBanned(ctx context.Context, id int64) (bool, error) { return f.banned[id], nil }
func (f *fakeStore) AddBlock(ctx context.Context, blocker, blocked int64) error {
	f.blocks = append(f.blocks, [2]int64{blocker, blocked})
	return nil
}
func (f *fakeStore) AddGlobalBan(ctx context.Context, id int64) error {
	f.globalBan = append(f.globalBan, id)
	f.banned[id] = true
	return nil
}
func (f *fakeStore) EndPair(ctx context.Context, id int64) (int64, bool, error) {
	partner, ok := f.partner[id]
	if !ok {
		return 0, false, nil
	}
	delete(f.partner, id)
	delete(f.partner, partner)
	return partner, true, nil
}
func (f *fakeStore) Dequeue(ctx context.Context, id int64) error {
	delete(f.waiting, id)
	return nil
}
func (f *fakeStore) PartnerOf(ctx context.Context, id int64) (int64, bool, error) {
	p, ok := f.partner[id]
	return p, ok, nil
}
func (f *fakeStore) IsWaiting(ctx context.Context, id int64) (bool, error) { return f.waiting[id], nil }
func (f *fakeStore) LocaleOf(ctx context.Context, id int64) (string, error) {
	if l, ok := f.locales[id]; ok {
		return l, nil
	}
	return "en", nil
}

// matcher.Store extras
func (f *fakeStore) ClaimEligibleWaiter(ctx context.Context, seeker int64, seekerLocale string) (int64, bool, error) {
	return 0, false, nil
}
func (f *fakeStore) BindPair(ctx context.Context, a, b int64) error {
	f.partner[a] = b
	f.partner[b] = a
	return nil
}
func (f *fakeStore) EnqueueIfAbsent(ctx context.Context, id int64) error {
	f.waiting[id] = true
	return nil
}

type fakeSubscriber struct{ subscribed bool }

func (s fakeSubscriber) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	return s.subscribed, nil
}

type fakeReplier struct {
	replies  []string
	answered []string
}

func (r *fakeReplier) Reply(ctx context.Context, userID int64, text string) error {
	r.replies = append(r.replies, text)
	return nil
}
func (r *fakeReplier) AnswerCallback(ctx context.Context, callbackID string) error {
	r.answered = append(r.answered, callbackID)
	return nil
}

func newDispatcher(st *fakeStore, sub fakeSubscriber, replier *fakeReplier) *Dispatcher {
	m := matcher.New(st)
	r := relay.New(st, noopRelayClient{}, sub, "")
	return New(st, m, r, sub, replier, 999)
}

type noopRelayClient struct{}

func (noopRelayClient) Send(ctx context.Context, chatID int64, msg relay.Message, protect bool) error {
	return nil
}
func (noopRelayClient) Archive(ctx context.Context, logChannelID string, msg relay.Message, sender, partner int64) error {
	return nil
}

func TestHandle_BanGate_PrecedesSubscriptionGate(t *testing.T) {
	st := newFakeStore()
	st.banned[1] = true
	replier := &fakeReplier{}
	d := newDispatcher(st, fakeSubscriber{subscribed: false}, replier)

	d.Handle(context.Background(), Event{Kind: KindCommand, UserID: 1, Command: "search"})

	if len(replier.replies) != 1 {
		t.Fatalf("expected exactly one reply, got %d: %v", len(replier.replies), replier.replies)
	}
	if replier.replies[0] != "\U0001F6AB Your access to this bot has been suspended permanently." {
		t.Fatalf("expected the ban message (not the channel-join gate), got %q", replier.replies[0])
	}
}

func TestHandle_BlockFlow_TwoStepConfirmation(t *testing.T) {
	st := newFakeStore()
	st.partner[1] = 2
	st.partner[2] = 1
	replier := &fakeReplier{}
	d := newDispatcher(st, fakeSubscriber{subscribed: true}, replier)
	ctx := context.Background()

	d.Handle(ctx, Event{Kind: KindCommand, UserID: 1, Command: "block"})
	if _, pending := d.pendingBlock[1]; !pending {
		t.Fatal("expected a pending block entry after the first tap")
	}
	if st.partner[1] != 2 {
		t.Fatal("the first tap must not mutate the pair yet")
	}

	replier.replies = nil
	d.Handle(ctx, Event{Kind: KindCallback, UserID: 1, CallbackID: "cb1", CallbackData: "confirm_block"})

	if _, pending := d.pendingBlock[1]; pending {
		t.Fatal("pending block should be cleared after confirmation")
	}
	if len(st.blocks) != 1 || st.blocks[0] != [2]int64{1, 2} {
		t.Fatalf("expected AddBlock(1, 2), got %v", st.blocks)
	}
	if _, stillPaired := st.partner[1]; stillPaired {
		t.Fatal("confirming the block should end the pair")
	}
	if len(replier.answered) != 1 || replier.answered[0] != "cb1" {
		t.Fatalf("expected the callback to be answered, got %v", replier.answered)
	}
}

func TestHandle_BlockFlow_Cancel(t *testing.T) {
	st := newFakeStore()
	st.partner[1] = 2
	st.partner[2] = 1
	replier := &fakeReplier{}
	d := newDispatcher(st, fakeSubscriber{subscribed: true}, replier)
	ctx := context.Background()

	d.Handle(ctx, Event{Kind: KindCommand, UserID: 1, Command: "block"})
	d.Handle(ctx, Event{Kind: KindCallback, UserID: 1, CallbackID: "cb2", CallbackData: "cancel_block"})

	if _, pending := d.pendingBlock[1]; pending {
		t.Fatal("pending block should be cleared after cancel")
	}
	if st.partner[1] != 2 {
		t.Fatal("cancelling must leave the pair intact")
	}
	if len(st.blocks) != 0 {
		t.Fatalf("cancel must never record a block, got %v", st.blocks)
	}
}

func TestHandle_AdminBan_RejectsNonAdmin(t *testing.T) {
	st := newFakeStore()
	replier := &fakeReplier{}
	d := newDispatcher(st, fakeSubscriber{subscribed: true}, replier)

	d.Handle(context.Background(), Event{Kind: KindCommand, UserID: 1, Command: "banuser", CommandArgs: "2"})

	if len(st.globalBan) != 0 {
		t.Fatalf("non-admin must not be able to ban anyone, got %v", st.globalBan)
	}
	if len(replier.replies) != 1 || replier.replies[0] != "access denied" {
		t.Fatalf("expected access denied, got %v", replier.replies)
	}
}

func TestHandle_AdminBan_AllowsAdmin(t *testing.T) {
	st := newFakeStore()
	replier := &fakeReplier{}
	d := newDispatcher(st, fakeSubscriber{subscribed: true}, replier)
	d.AdminID = 1

	d.Handle(context.Background(), Event{Kind: KindCommand, UserID: 1, Command: "banuser", CommandArgs: "2"})

	if len(st.globalBan) != 1 || st.globalBan[0] != 2 {
		t.Fatalf("expected user 2 to be banned, got %v", st.globalBan)
	}
}
