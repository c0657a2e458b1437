// ABOUTME: Per-turn relay controller between the channel and the backend.
// ABOUTME: Posts user messages and drives the poll-and-relay loop.

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/relay-gateway/internal/channel"
	"github.com/2389/relay-gateway/internal/directline"
	"github.com/2389/relay-gateway/internal/session"
)

// Default poll loop timing. One loop instance waits at most MaxWait,
// checking the feed every PollInterval.
const (
	DefaultMaxWait      = 5 * time.Second
	DefaultPollInterval = 1 * time.Second
)

// Backend is the slice of the activity-exchange API the orchestrator
// uses. Satisfied by the directline client.
type Backend interface {
	PostActivity(ctx context.Context, token, conversationID string, activity *directline.Activity) error
	GetActivities(ctx context.Context, token, conversationID, watermark string) (*directline.ActivitySet, error)
}

// Sender delivers converted messages to the external channel. It may be
// called several times within one turn.
type Sender interface {
	Send(ctx context.Context, externalID string, msg *channel.Message) error
}

// AuthHandler resolves sign-in prompt activities out of band.
type AuthHandler interface {
	Handle(ctx context.Context, sess *session.Session, prompt *directline.Activity) error
}

// Recorder observes relayed turns for the audit ledger. Implementations
// must tolerate being nil-checked away; recording failures never fail a
// turn.
type Recorder interface {
	RecordTurn(ctx context.Context, externalID, direction, author, text string) error
}

// Turn directions recorded in the ledger.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// loopResult is the terminal state of one poll-and-relay loop instance.
type loopResult int

const (
	// resultDelivered: at least one reply was relayed and the watermark
	// advanced.
	resultDelivered loopResult = iota
	// resultAborted: a newer turn advanced the watermark first; this loop
	// delivered nothing.
	resultAborted
	// resultTimedOut: no qualifying reply arrived within MaxWait.
	resultTimedOut
)

func (r loopResult) String() string {
	switch r {
	case resultDelivered:
		return "delivered"
	case resultAborted:
		return "aborted"
	case resultTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Orchestrator relays turns between the external channel and the backend
// conversation owned by each session.
type Orchestrator struct {
	sessions *session.Registry
	backend  Backend
	sender   Sender
	auth     AuthHandler // nil disables silent sign-in
	recorder Recorder    // nil disables the audit ledger

	botName      string
	maxWait      time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// Options configures an Orchestrator beyond its required collaborators.
type Options struct {
	Auth         AuthHandler
	Recorder     Recorder
	MaxWait      time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
}

// New creates an Orchestrator. botName is the backend agent's display
// name; only activities authored under exactly that name count as
// replies.
func New(sessions *session.Registry, backend Backend, sender Sender, botName string, opts Options) *Orchestrator {
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		sessions:     sessions,
		backend:      backend,
		sender:       sender,
		auth:         opts.Auth,
		recorder:     opts.Recorder,
		botName:      botName,
		maxWait:      opts.MaxWait,
		pollInterval: opts.PollInterval,
		logger:       logger.With("component", "relay"),
	}
}

// OnConversationStart warms the session for a newly seen conversation.
// No reply is sent.
func (o *Orchestrator) OnConversationStart(ctx context.Context, externalID string) error {
	_, err := o.sessions.GetOrCreate(ctx, externalID)
	return err
}

// OnInboundMessage relays one user turn: get or create the session, post
// the message to the backend, then wait for and forward the agent's
// replies. LastActivityAt is touched regardless of the loop's outcome.
// Backend failures propagate to the caller's turn error handler.
func (o *Orchestrator) OnInboundMessage(ctx context.Context, externalID string, msg channel.InboundMessage) error {
	sess, err := o.sessions.GetOrCreate(ctx, externalID)
	if err != nil {
		return err
	}
	defer sess.Touch()

	o.record(ctx, externalID, DirectionInbound, msg.FromName, msg.Text)

	activity := &directline.Activity{
		Type:       directline.ActivityTypeMessage,
		From:       directline.ChannelAccount{ID: msg.FromID, Name: msg.FromName},
		Text:       msg.Text,
		TextFormat: msg.TextFormat,
		Locale:     msg.Locale,
	}
	if err := o.backend.PostActivity(ctx, sess.Token, sess.ConversationID, activity); err != nil {
		return fmt.Errorf("forwarding user message: %w", err)
	}

	return o.awaitReplies(ctx, sess)
}

// awaitReplies is the poll-and-relay loop. Each attempt fetches one page
// of the feed past the session watermark, relays qualifying agent
// replies, and advances the watermark. A page whose watermark is not
// strictly greater than the stored one means a newer turn already owns
// delivery, so this loop aborts without sending. Timing out silently is
// normal: slow agents simply answer on a later turn's page.
func (o *Orchestrator) awaitReplies(ctx context.Context, sess *session.Session) error {
	maxAttempts := int(o.maxWait / o.pollInterval)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		set, err := o.backend.GetActivities(ctx, sess.Token, sess.ConversationID, sess.Watermark())
		if err != nil {
			return fmt.Errorf("polling activities: %w", err)
		}

		replies := o.filterReplies(set.Activities)
		if len(replies) > 0 {
			result, err := o.deliver(ctx, sess, replies, set.Watermark)
			if err != nil {
				return err
			}
			o.logger.Debug("poll loop finished",
				"external_id", sess.ExternalID,
				"result", result.String(),
				"attempt", attempt,
			)
			return nil
		}

		if err := o.sleep(ctx); err != nil {
			return err
		}
	}

	o.logger.Debug("poll loop finished",
		"external_id", sess.ExternalID,
		"result", resultTimedOut.String(),
	)
	return nil
}

// filterReplies keeps message activities authored by the backend agent
// identity. Other participants and other activity types are ignored.
func (o *Orchestrator) filterReplies(activities []directline.Activity) []*directline.Activity {
	var replies []*directline.Activity
	for i := range activities {
		a := &activities[i]
		if a.Type == directline.ActivityTypeMessage && a.From.Name == o.botName {
			replies = append(replies, a)
		}
	}
	return replies
}

// deliver relays one page of replies. The stale-watermark check comes
// first: if the page's marker has not moved past the session's, a newer
// loop instance already delivered this content and this one must stand
// down.
func (o *Orchestrator) deliver(ctx context.Context, sess *session.Session, replies []*directline.Activity, candidate string) (loopResult, error) {
	if !session.WatermarkGreater(candidate, sess.Watermark()) {
		o.logger.Debug("stale watermark, newer turn owns delivery",
			"external_id", sess.ExternalID,
			"candidate", candidate,
			"current", sess.Watermark(),
		)
		return resultAborted, nil
	}

	for _, reply := range replies {
		if err := ctx.Err(); err != nil {
			// Cancelled mid-page: already-sent messages stay sent, but the
			// watermark must not advance past what was delivered.
			return resultAborted, err
		}

		if reply.HasSignInCard() {
			if o.auth == nil {
				o.logger.Warn("sign-in prompt received but silent auth is disabled",
					"external_id", sess.ExternalID,
					"activity_id", reply.ID,
				)
				continue
			}
			if err := o.auth.Handle(ctx, sess, reply); err != nil {
				return resultAborted, err
			}
			continue
		}

		msg := Convert(reply)
		if msg == nil {
			continue
		}
		if err := o.sender.Send(ctx, sess.ExternalID, msg); err != nil {
			return resultAborted, fmt.Errorf("sending reply: %w", err)
		}
		o.record(ctx, sess.ExternalID, DirectionOutbound, reply.From.Name, reply.Text)
	}

	sess.Advance(candidate)
	return resultDelivered, nil
}

// sleep waits one poll interval, returning early if the turn is
// cancelled.
func (o *Orchestrator) sleep(ctx context.Context) error {
	timer := time.NewTimer(o.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// record writes one ledger entry, logging and dropping failures.
func (o *Orchestrator) record(ctx context.Context, externalID, direction, author, text string) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordTurn(ctx, externalID, direction, author, text); err != nil {
		o.logger.Warn("ledger write failed",
			"external_id", externalID,
			"direction", direction,
			"error", err,
		)
	}
}
