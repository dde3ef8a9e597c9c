// Package dispatcher is the single entry point classifying inbound
// platform events and driving Matcher/Relay/Store (spec.md §4.6). One
// call to Handle corresponds to "one coroutine per inbound event"
// (spec.md §5) — callers are expected to invoke Handle from its own
// goroutine per event so a slow Store or platform call for one user
// never stalls another.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/randompartner/chatrelay/internal/locale"
	"github.com/randompartner/chatrelay/internal/matcher"
	"github.com/randompartner/chatrelay/internal/relay"
	"github.com/randompartner/chatrelay/internal/session"
)

// Kind classifies an inbound event (spec.md §6).
type Kind int

const (
	KindCommand Kind = iota
	KindCallback
	KindContent
)

// Event is the platform-agnostic inbound event the Dispatcher consumes.
// internal/telegram populates this from a tgbotapi.Update.
type Event struct {
	Kind         Kind
	UserID       int64
	Locale       string
	Command      string // for KindCommand: "start", "search", "next", "stop", "block", "settings"
	CommandArgs  string
	CallbackID   string // for KindCallback: answerCallback token
	CallbackData string
	Message      relay.Message // for KindContent
}

// Replier is how the Dispatcher talks back to the user — a thin wrapper
// over the platform adapter's sendText/answerCallback primitives, kept
// narrow so Dispatcher depends only on interfaces it actually needs.
type Replier interface {
	Reply(ctx context.Context, userID int64, text string) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Store is the subset of store.Store the Dispatcher reads/writes
// directly (guard gates and the block/ban commands it doesn't delegate
// to Matcher or Relay).
type Store interface {
	EnsureUser(ctx context.Context, id int64, locale string) error
	IsBanned(ctx context.Context, id int64) (bool, error)
	AddBlock(ctx context.Context, blocker, blocked int64) error
	AddGlobalBan(ctx context.Context, id int64) error
	EndPair(ctx context.Context, id int64) (int64, bool, error)
	Dequeue(ctx context.Context, id int64) error
	PartnerOf(ctx context.Context, id int64) (int64, bool, error)
	IsWaiting(ctx context.Context, id int64) (bool, error)
	LocaleOf(ctx context.Context, id int64) (string, error)
}

// Subscriber is the subscription gate (spec.md §4.4 step 2 / §4.6).
type Subscriber interface {
	IsSubscribed(ctx context.Context, userID int64) (bool, error)
}

// Dispatcher wires together Store, Matcher, Relay, Subscriber, and
// Replier behind the single Handle entry point.
type Dispatcher struct {
	Store      Store
	Matcher    *matcher.Matcher
	Relay      *relay.Relay
	Subscriber Subscriber
	Replier    Replier
	AdminID    int64

	// pendingBlock tracks users who have tapped "block" once and are
	// waiting on the confirmation tap — the two-step flow from spec.md
	// §4.6. Keyed by user id; value is the peer id captured at the
	// first tap so a stale confirmation can't target a since-changed
	// partner.
	pendingBlock map[int64]int64
}

// New constructs a Dispatcher.
func New(st Store, m *matcher.Matcher, r *relay.Relay, sub Subscriber, replier Replier, adminID int64) *Dispatcher {
	return &Dispatcher{
		Store:        st,
		Matcher:      m,
		Relay:        r,
		Subscriber:   sub,
		Replier:      replier,
		AdminID:      adminID,
		pendingBlock: make(map[int64]int64),
	}
}

// Handle classifies ev and drives the appropriate subsystem. Every error
// is caught here — none propagates across events or users (spec.md §7
// "Propagation").
func (d *Dispatcher) Handle(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int64("user_id", ev.UserID).Msg("dispatcher: recovered from panic")
		}
	}()

	if err := d.Store.EnsureUser(ctx, ev.UserID, localeOrDefault(ev.Locale)); err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: ensure user failed")
		return
	}

	banned, err := d.Store.IsBanned(ctx, ev.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: ban check failed")
		return
	}
	if banned {
		d.reply(ctx, ev.UserID, locale.GloballyBanned(ev.Locale))
		return
	}

	switch ev.Kind {
	case KindCallback:
		d.handleCallback(ctx, ev)
	case KindCommand:
		d.handleCommand(ctx, ev)
	case KindContent:
		d.handleContent(ctx, ev)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev Event) {
	if !d.gateSubscribed(ctx, ev) {
		return
	}

	switch ev.Command {
	case "start":
		d.handleStart(ctx, ev)
	case "search":
		d.handleSearch(ctx, ev)
	case "next":
		d.handleNext(ctx, ev)
	case "stop", "end":
		d.handleStop(ctx, ev)
	case "block":
		d.handleBlockRequest(ctx, ev)
	case "settings":
		// Language selection UI is out of core scope (spec.md §1); the
		// core only needs to accept the resulting locale via EnsureUser.
	case "banuser":
		d.handleAdminBan(ctx, ev)
	case "broadcast", "sendid":
		// Fan-out/identity admin commands are out of core scope
		// (spec.md §6); only banuser feeds the Store.
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, ev Event) {
	state, _, err := session.Derive(ctx, d.Store, ev.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: derive state failed")
		return
	}
	switch state {
	case session.Paired:
		d.reply(ctx, ev.UserID, locale.AlreadyInChat(ev.Locale))
	case session.Waiting:
		d.reply(ctx, ev.UserID, locale.AlreadySearching(ev.Locale))
	default:
		d.reply(ctx, ev.UserID, locale.Welcome(ev.Locale))
	}
}

func (d *Dispatcher) handleSearch(ctx context.Context, ev Event) {
	result, err := d.Matcher.TryMatch(ctx, ev.UserID)
	if err != nil {
		if err == matcher.ErrAlreadyPaired {
			d.reply(ctx, ev.UserID, locale.AlreadyInChat(ev.Locale))
			return
		}
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: search failed")
		return
	}
	d.notifyMatchResult(ctx, ev.UserID, ev.Locale, result)
}

// handleNext implements spec.md §4.3's "next": endPair(self) then
// tryMatch(self). The former partner transitions Paired→Idle and is
// notified, but is not automatically re-enqueued (design notes' open
// question, preserved as-is).
func (d *Dispatcher) handleNext(ctx context.Context, ev Event) {
	partner, hadPartner, err := d.Store.EndPair(ctx, ev.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: next endpair failed")
		return
	}
	if hadPartner {
		d.notifyPartnerLeft(ctx, partner)
	}

	result, err := d.Matcher.TryMatch(ctx, ev.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: next rematch failed")
		return
	}
	if !result.Matched {
		d.reply(ctx, ev.UserID, locale.NextMsgUser(ev.Locale))
	}
	d.notifyMatchResult(ctx, ev.UserID, ev.Locale, result)
}

func (d *Dispatcher) handleStop(ctx context.Context, ev Event) {
	partner, hadPartner, err := d.Store.EndPair(ctx, ev.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: stop endpair failed")
		return
	}
	if err := d.Store.Dequeue(ctx, ev.UserID); err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: stop dequeue failed")
	}

	if !hadPartner {
		d.reply(ctx, ev.UserID, locale.EndNotInChat(ev.Locale))
		return
	}
	d.reply(ctx, ev.UserID, locale.EndMsgUser(ev.Locale))
	d.notifyPartnerLeft(ctx, partner)
}

// handleBlockRequest is the first tap of the two-step block flow
// (spec.md §4.6): surface a confirmation prompt without mutating state.
func (d *Dispatcher) handleBlockRequest(ctx context.Context, ev Event) {
	state, partner, err := session.Derive(ctx, d.Store, ev.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: block derive failed")
		return
	}
	switch state {
	case session.Paired:
		d.pendingBlock[ev.UserID] = partner
		d.reply(ctx, ev.UserID, locale.BlockConfirmText(ev.Locale))
	case session.Waiting:
		d.reply(ctx, ev.UserID, locale.BlockWhileSearch(ev.Locale))
	default:
		d.reply(ctx, ev.UserID, locale.BlockNotInChat(ev.Locale))
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, ev Event) {
	if err := d.Replier.AnswerCallback(ctx, ev.CallbackID); err != nil {
		log.Warn().Err(err).Msg("dispatcher: answer callback failed")
	}

	switch ev.CallbackData {
	case "confirm_block":
		d.handleBlockConfirm(ctx, ev)
	case "cancel_block":
		delete(d.pendingBlock, ev.UserID)
		d.reply(ctx, ev.UserID, locale.BlockCancelled(ev.Locale))
	}
}

// handleBlockConfirm is the second, positive tap: commits addBlock +
// endPair + archive-channel report (spec.md §4.6).
func (d *Dispatcher) handleBlockConfirm(ctx context.Context, ev Event) {
	peer, pending := d.pendingBlock[ev.UserID]
	if !pending {
		return
	}
	delete(d.pendingBlock, ev.UserID)

	if err := d.Store.AddBlock(ctx, ev.UserID, peer); err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Int64("peer", peer).Msg("dispatcher: add block failed")
		return
	}

	partner, hadPartner, err := d.Store.EndPair(ctx, ev.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: block endpair failed")
		return
	}

	if d.Relay != nil && d.Relay.LogChannelID != "" {
		report := relay.Message{Kind: relay.KindText, Text: "block and report"}
		if err := d.Relay.Client.Archive(ctx, d.Relay.LogChannelID, report, ev.UserID, peer); err != nil {
			log.Warn().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: block report archive failed")
		}
	}

	d.reply(ctx, ev.UserID, locale.BlockSuccess(ev.Locale))
	if hadPartner {
		d.notifyPartnerLeft(ctx, partner)
	}
	log.Info().Int64("blocker", ev.UserID).Int64("blocked", peer).Msg("block and report committed")
}

func (d *Dispatcher) handleContent(ctx context.Context, ev Event) {
	if !d.gateSubscribed(ctx, ev) {
		return
	}

	outcome, err := d.Relay.Forward(ctx, ev.UserID, ev.Message)
	if err != nil {
		log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: relay failed")
		return
	}

	switch outcome {
	case relay.OutcomeRelayed:
		// nothing further to do
	case relay.OutcomeBanned:
		d.reply(ctx, ev.UserID, locale.GloballyBanned(ev.Locale))
	case relay.OutcomeNotSubscribed:
		d.reply(ctx, ev.UserID, locale.JoinChannelMsg(ev.Locale))
	case relay.OutcomeNotInChat:
		d.reply(ctx, ev.UserID, locale.NotInChatMsg(ev.Locale))
	case relay.OutcomeLinkBlocked:
		d.reply(ctx, ev.UserID, locale.LinkBlocked(ev.Locale))
	case relay.OutcomeUsernameBlocked:
		d.reply(ctx, ev.UserID, locale.UsernameBlocked(ev.Locale))
	case relay.OutcomeUndeliverable:
		d.reply(ctx, ev.UserID, locale.UnreachablePartner(ev.Locale))
	case relay.OutcomeSendFailed:
		d.reply(ctx, ev.UserID, "failed to send: please try again")
	}
}

func (d *Dispatcher) handleAdminBan(ctx context.Context, ev Event) {
	if ev.UserID != d.AdminID {
		d.reply(ctx, ev.UserID, "access denied")
		return
	}
	var target int64
	if _, err := fmt.Sscanf(ev.CommandArgs, "%d", &target); err != nil {
		d.reply(ctx, ev.UserID, "usage: /banuser <user_id>")
		return
	}
	if err := d.Store.AddGlobalBan(ctx, target); err != nil {
		log.Error().Err(err).Int64("target", target).Msg("dispatcher: ban failed")
		d.reply(ctx, ev.UserID, "error banning user")
		return
	}
	d.reply(ctx, ev.UserID, fmt.Sprintf("user %d has been banned", target))
}

func (d *Dispatcher) notifyMatchResult(ctx context.Context, userID int64, userLocale string, result matcher.Result) {
	if result.Matched {
		d.reply(ctx, userID, locale.PartnerFound(userLocale))
		d.reply(ctx, result.Peer, locale.PartnerFound(d.localeOf(ctx, result.Peer)))
	} else {
		d.reply(ctx, userID, locale.SearchWait(userLocale))
	}
}

func (d *Dispatcher) notifyPartnerLeft(ctx context.Context, partner int64) {
	d.reply(ctx, partner, locale.EndMsgPartner(d.localeOf(ctx, partner)))
}

// localeOf looks up a peer's locale for a notification we didn't
// receive an Event for, falling back to the default on any Store error.
func (d *Dispatcher) localeOf(ctx context.Context, id int64) string {
	l, err := d.Store.LocaleOf(ctx, id)
	if err != nil {
		return locale.Default
	}
	return l
}

func (d *Dispatcher) gateSubscribed(ctx context.Context, ev Event) bool {
	subscribed, err := d.Subscriber.IsSubscribed(ctx, ev.UserID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", ev.UserID).Msg("dispatcher: subscription check failed")
		subscribed = false
	}
	if !subscribed {
		d.reply(ctx, ev.UserID, locale.JoinChannelMsg(ev.Locale))
		return false
	}
	return true
}

func (d *Dispatcher) reply(ctx context.Context, userID int64, text string) {
	if err := d.Replier.Reply(ctx, userID, text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("dispatcher: reply failed")
	}
}

func localeOrDefault(l string) string {
	if l == "" {
		return locale.Default
	}
	return l
}
