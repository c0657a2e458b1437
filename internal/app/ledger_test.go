// ABOUTME: Tests for the session-recording turn handler decorator
// ABOUTME: Covers once-per-process recording and ledger failure isolation

package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/relay-gateway/internal/channel"
	"github.com/2389/relay-gateway/internal/session"
	"github.com/2389/relay-gateway/internal/store"
)

type fakeTurns struct {
	startErr error
	msgErr   error
	msgCalls int
}

func (f *fakeTurns) OnConversationStart(ctx context.Context, externalID string) error {
	return f.startErr
}

func (f *fakeTurns) OnInboundMessage(ctx context.Context, externalID string, msg channel.InboundMessage) error {
	f.msgCalls++
	return f.msgErr
}

type fakeLedger struct {
	mu       sync.Mutex
	sessions []*store.SessionRecord
	err      error
}

func (f *fakeLedger) RecordSession(ctx context.Context, rec *store.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sessions = append(f.sessions, rec)
	return nil
}

func (f *fakeLedger) RecordTurn(ctx context.Context, turn *store.Turn) error { return nil }

func (f *fakeLedger) ListTurns(ctx context.Context, externalID string, limit int) ([]*store.Turn, error) {
	return nil, nil
}

func (f *fakeLedger) GetSession(ctx context.Context, externalID string) (*store.SessionRecord, error) {
	return nil, store.ErrNotFound
}

func (f *fakeLedger) Close() error { return nil }

type staticProvider struct{}

func (staticProvider) Open(ctx context.Context) (string, string, error) {
	return "conv-1", "token-1", nil
}

func newTestRegistry(t *testing.T) *session.Registry {
	t.Helper()
	return session.NewRegistry(staticProvider{}, nil)
}

func TestLedgerTurns_RecordsSessionOnce(t *testing.T) {
	sessions := newTestRegistry(t)
	ledger := &fakeLedger{}
	turns := &fakeTurns{}
	lt := newLedgerTurns(turns, sessions, ledger, nil)
	ctx := context.Background()

	_, err := sessions.GetOrCreate(ctx, "ext-1")
	require.NoError(t, err)

	require.NoError(t, lt.OnInboundMessage(ctx, "ext-1", channel.InboundMessage{Text: "hi"}))
	require.NoError(t, lt.OnInboundMessage(ctx, "ext-1", channel.InboundMessage{Text: "again"}))

	assert.Equal(t, 2, turns.msgCalls)
	require.Len(t, ledger.sessions, 1)
	assert.Equal(t, "ext-1", ledger.sessions[0].ExternalID)
	assert.Equal(t, "conv-1", ledger.sessions[0].ConversationID)
}

func TestLedgerTurns_RecordsOnConversationStart(t *testing.T) {
	sessions := newTestRegistry(t)
	ledger := &fakeLedger{}
	lt := newLedgerTurns(&fakeTurns{}, sessions, ledger, nil)
	ctx := context.Background()

	_, err := sessions.GetOrCreate(ctx, "ext-1")
	require.NoError(t, err)

	require.NoError(t, lt.OnConversationStart(ctx, "ext-1"))
	require.Len(t, ledger.sessions, 1)
}

func TestLedgerTurns_SkipsRecordingWhenStartFails(t *testing.T) {
	sessions := newTestRegistry(t)
	ledger := &fakeLedger{}
	lt := newLedgerTurns(&fakeTurns{startErr: errors.New("boom")}, sessions, ledger, nil)

	assert.Error(t, lt.OnConversationStart(context.Background(), "ext-1"))
	assert.Empty(t, ledger.sessions)
}

func TestLedgerTurns_LedgerFailureDoesNotFailTurn(t *testing.T) {
	sessions := newTestRegistry(t)
	ledger := &fakeLedger{err: errors.New("disk full")}
	lt := newLedgerTurns(&fakeTurns{}, sessions, ledger, nil)
	ctx := context.Background()

	_, err := sessions.GetOrCreate(ctx, "ext-1")
	require.NoError(t, err)

	assert.NoError(t, lt.OnInboundMessage(ctx, "ext-1", channel.InboundMessage{Text: "hi"}))
}

func TestLedgerTurns_SkipsUnknownSession(t *testing.T) {
	sessions := newTestRegistry(t)
	ledger := &fakeLedger{}
	lt := newLedgerTurns(&fakeTurns{msgErr: errors.New("turn failed")}, sessions, ledger, nil)

	// Turn failed before a session existed; nothing to record.
	assert.Error(t, lt.OnInboundMessage(context.Background(), "ext-1", channel.InboundMessage{Text: "hi"}))
	assert.Empty(t, ledger.sessions)
}
