// ABOUTME: Data types and interface for the relay's audit ledger.
// ABOUTME: Records sessions opened and turns relayed, for history only.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SessionRecord notes that a backend conversation was opened for an
// external conversation. Live session state stays in memory; this is
// history only.
type SessionRecord struct {
	ExternalID     string
	ConversationID string
	CreatedAt      time.Time
}

// Turn is one relayed message, inbound from the user or outbound from
// the agent.
type Turn struct {
	ID         string
	ExternalID string
	Direction  string // "inbound" or "outbound"
	Author     string
	Text       string
	CreatedAt  time.Time
}

// Store persists the audit ledger.
type Store interface {
	RecordSession(ctx context.Context, rec *SessionRecord) error
	RecordTurn(ctx context.Context, turn *Turn) error
	ListTurns(ctx context.Context, externalID string, limit int) ([]*Turn, error)
	GetSession(ctx context.Context, externalID string) (*SessionRecord, error)
	Close() error
}
