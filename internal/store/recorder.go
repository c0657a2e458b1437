// ABOUTME: Adapts the ledger store to the relay's turn recorder interface.

package store

import "context"

// TurnRecorder exposes a Store as the relay's per-turn recorder.
type TurnRecorder struct {
	store Store
}

// NewTurnRecorder wraps a Store for the relay.
func NewTurnRecorder(st Store) *TurnRecorder {
	return &TurnRecorder{store: st}
}

// RecordTurn appends one relayed message to the ledger.
func (r *TurnRecorder) RecordTurn(ctx context.Context, externalID, direction, author, text string) error {
	return r.store.RecordTurn(ctx, &Turn{
		ExternalID: externalID,
		Direction:  direction,
		Author:     author,
		Text:       text,
	})
}
