package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/randompartner/chatrelay/internal/locale"
)

// Kind enumerates the platform's typed send primitives (spec.md §6).
type Kind int

const (
	KindText Kind = iota
	KindPhoto
	KindVideo
	KindDocument
	KindVoice
	KindSticker
)

// Message is a platform-agnostic view of one inbound/outbound message.
// FileID is the platform's opaque file handle for non-text kinds.
type Message struct {
	Kind    Kind
	Text    string
	Caption string
	FileID  string
}

// body returns the text that content policy should be checked against:
// the message text for KindText, the caption for everything else.
func (m Message) body() string {
	if m.Kind == KindText {
		return m.Text
	}
	return m.Caption
}

// ErrUndeliverablePeer wraps a terminal platform delivery error
// (bot-blocked, user-deactivated, chat-not-found) — spec.md §4.4 step 7.
var ErrUndeliverablePeer = errors.New("relay: peer endpoint unreachable")

// SendError is returned by Client.Send when delivery fails. Terminal
// marks whether the failure is a permanent, teardown-triggering
// condition or a transient one the sender should simply retry later.
type SendError struct {
	Terminal bool
	Err      error
}

func (e *SendError) Error() string { return e.Err.Error() }
func (e *SendError) Unwrap() error { return e.Err }

// Client is the external platform binding Relay needs: sending a typed
// message with the copy-protect flag set, and a best-effort archive
// copy. Nothing else about the platform client is exposed here — the
// adapter (internal/telegram) is the only implementation.
type Client interface {
	Send(ctx context.Context, chatID int64, msg Message, protectContent bool) error
	Archive(ctx context.Context, logChannelID string, msg Message, senderID, partnerID int64) error
}

// Store is the subset of store.Store Relay needs.
type Store interface {
	IsBanned(ctx context.Context, id int64) (bool, error)
	PartnerOf(ctx context.Context, id int64) (int64, bool, error)
	LocaleOf(ctx context.Context, id int64) (string, error)
	EndPair(ctx context.Context, id int64) (int64, bool, error)
}

// Subscriber checks the mandatory channel-membership gate. Implemented
// by internal/telegram; kept as its own narrow interface because it's
// the one gate that isn't a Store read (spec.md §4.4 step 2).
type Subscriber interface {
	IsSubscribed(ctx context.Context, userID int64) (bool, error)
}

// Relay forwards inbound messages to the sender's partner.
type Relay struct {
	Store        Store
	Client       Client
	Subscriber   Subscriber
	LogChannelID string // empty disables the archive (spec.md §6)
}

// New constructs a Relay. logChannelID may be empty.
func New(s Store, c Client, sub Subscriber, logChannelID string) *Relay {
	return &Relay{Store: s, Client: c, Subscriber: sub, LogChannelID: logChannelID}
}

// Outcome reports the result classification for callers that need to
// choose a reply message (the Dispatcher).
type Outcome int

const (
	OutcomeRelayed Outcome = iota
	OutcomeBanned
	OutcomeNotSubscribed
	OutcomeNotInChat
	OutcomeLinkBlocked
	OutcomeUsernameBlocked
	OutcomeUndeliverable
	OutcomeSendFailed
)

// Forward implements relay(sender, msg) from spec.md §4.4, steps 1-7.
func (r *Relay) Forward(ctx context.Context, sender int64, msg Message) (Outcome, error) {
	corrID := uuid.NewString()
	logger := log.With().Str("relay_id", corrID).Int64("sender", sender).Logger()

	banned, err := r.Store.IsBanned(ctx, sender)
	if err != nil {
		return OutcomeBanned, fmt.Errorf("relay: ban check: %w", err)
	}
	if banned {
		return OutcomeBanned, nil
	}

	subscribed, err := r.Subscriber.IsSubscribed(ctx, sender)
	if err != nil {
		logger.Warn().Err(err).Msg("subscription check failed; treating as not subscribed")
		subscribed = false
	}
	if !subscribed {
		return OutcomeNotSubscribed, nil
	}

	partner, ok, err := r.Store.PartnerOf(ctx, sender)
	if err != nil {
		return OutcomeNotInChat, fmt.Errorf("relay: partner lookup: %w", err)
	}
	if !ok {
		return OutcomeNotInChat, nil
	}

	// Archive before content filtering so operators can see what was
	// blocked (spec.md §4.4 step 4). Fire-and-forget: failures are
	// logged, never abort the relay.
	if r.LogChannelID != "" {
		if err := r.Client.Archive(ctx, r.LogChannelID, msg, sender, partner); err != nil {
			logger.Warn().Err(err).Msg("archive copy failed")
		}
	}

	if body := msg.body(); body != "" {
		if ContainsURL(body) {
			return OutcomeLinkBlocked, nil
		}
		if ContainsMention(body) {
			return OutcomeUsernameBlocked, nil
		}
	}

	partnerLocale, err := r.Store.LocaleOf(ctx, partner)
	if err != nil {
		return OutcomeSendFailed, fmt.Errorf("relay: partner locale: %w", err)
	}
	out := withPartnerPrefix(msg, partnerLocale)

	err = r.Client.Send(ctx, partner, out, true)
	if err == nil {
		logger.Info().Int64("partner", partner).Msg("message relayed")
		return OutcomeRelayed, nil
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) && sendErr.Terminal {
		if _, _, endErr := r.Store.EndPair(ctx, sender); endErr != nil {
			logger.Error().Err(endErr).Msg("failed to tear down pair after undeliverable peer")
		}
		logger.Warn().Int64("partner", partner).Err(err).Msg("peer unreachable; pair ended")
		return OutcomeUndeliverable, nil
	}

	logger.Warn().Int64("partner", partner).Err(err).Msg("send failed; pair preserved")
	return OutcomeSendFailed, nil
}

func withPartnerPrefix(msg Message, partnerLocale string) Message {
	prefix := locale.PartnerPrefix(partnerLocale)
	if msg.Kind == KindSticker {
		return msg
	}
	out := msg
	if out.Kind == KindText {
		out.Text = prefix + out.Text
	} else if out.Caption != "" {
		out.Caption = prefix + out.Caption
	}
	return out
}
