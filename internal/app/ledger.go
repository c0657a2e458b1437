// ABOUTME: Turn handler decorator that notes opened sessions in the ledger.
// ABOUTME: Records each external conversation once per process lifetime.

package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/relay-gateway/internal/channel"
	"github.com/2389/relay-gateway/internal/session"
	"github.com/2389/relay-gateway/internal/store"
)

// ledgerTurns wraps a relay orchestrator and records the backend
// conversation behind each external id the first time a turn touches it.
// Ledger failures are logged, never surfaced to the turn.
type ledgerTurns struct {
	inner    channel.TurnHandler
	sessions *session.Registry
	ledger   store.Store
	logger   *slog.Logger

	mu       sync.Mutex
	recorded map[string]bool
}

func newLedgerTurns(inner channel.TurnHandler, sessions *session.Registry, ledger store.Store, logger *slog.Logger) *ledgerTurns {
	if logger == nil {
		logger = slog.Default()
	}
	return &ledgerTurns{
		inner:    inner,
		sessions: sessions,
		ledger:   ledger,
		logger:   logger.With("component", "ledger"),
		recorded: make(map[string]bool),
	}
}

func (l *ledgerTurns) OnConversationStart(ctx context.Context, externalID string) error {
	err := l.inner.OnConversationStart(ctx, externalID)
	if err == nil {
		l.recordSession(ctx, externalID)
	}
	return err
}

func (l *ledgerTurns) OnInboundMessage(ctx context.Context, externalID string, msg channel.InboundMessage) error {
	err := l.inner.OnInboundMessage(ctx, externalID, msg)
	l.recordSession(ctx, externalID)
	return err
}

// recordSession writes the session row once per external id. Sessions die
// with the process, so a restart records again with the fresh backend
// conversation.
func (l *ledgerTurns) recordSession(ctx context.Context, externalID string) {
	sess, ok := l.sessions.Get(externalID)
	if !ok {
		return
	}

	l.mu.Lock()
	seen := l.recorded[externalID]
	l.recorded[externalID] = true
	l.mu.Unlock()
	if seen {
		return
	}

	err := l.ledger.RecordSession(ctx, &store.SessionRecord{
		ExternalID:     externalID,
		ConversationID: sess.ConversationID,
	})
	if err != nil {
		l.logger.Error("failed to record session",
			"external_id", externalID,
			"error", err,
		)
	}
}
