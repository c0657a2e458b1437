// ABOUTME: Tests for the SQLite audit ledger.
// ABOUTME: Session records, turn ordering, limits, and the relay adapter.

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordSession_AndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSession(ctx, &SessionRecord{
		ExternalID:     "ext-1",
		ConversationID: "conv-1",
	}))

	rec, err := s.GetSession(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", rec.ConversationID)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordSession_OverwritesOnRestart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSession(ctx, &SessionRecord{ExternalID: "ext-1", ConversationID: "conv-1"}))
	require.NoError(t, s.RecordSession(ctx, &SessionRecord{ExternalID: "ext-1", ConversationID: "conv-2"}))

	rec, err := s.GetSession(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-2", rec.ConversationID)
}

func TestRecordTurn_ListOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordTurn(ctx, &Turn{
			ExternalID: "ext-1",
			Direction:  "inbound",
			Author:     "User",
			Text:       fmt.Sprintf("message %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	turns, err := s.ListTurns(ctx, "ext-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "message 0", turns[0].Text, "oldest first")
	assert.Equal(t, "message 2", turns[2].Text)
}

func TestListTurns_LimitKeepsNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordTurn(ctx, &Turn{
			ExternalID: "ext-1",
			Direction:  "outbound",
			Author:     "Agent",
			Text:       fmt.Sprintf("reply %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	turns, err := s.ListTurns(ctx, "ext-1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "reply 3", turns[0].Text)
	assert.Equal(t, "reply 4", turns[1].Text)
}

func TestListTurns_IsolatedByConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTurn(ctx, &Turn{ExternalID: "ext-a", Direction: "inbound", Author: "User", Text: "a"}))
	require.NoError(t, s.RecordTurn(ctx, &Turn{ExternalID: "ext-b", Direction: "inbound", Author: "User", Text: "b"}))

	turns, err := s.ListTurns(ctx, "ext-a", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "a", turns[0].Text)
}

func TestTurnRecorder_Adapter(t *testing.T) {
	s := newTestStore(t)
	recorder := NewTurnRecorder(s)

	require.NoError(t, recorder.RecordTurn(context.Background(), "ext-1", "inbound", "User", "hi"))

	turns, err := s.ListTurns(context.Background(), "ext-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "inbound", turns[0].Direction)
	assert.NotEmpty(t, turns[0].ID, "id assigned when absent")
}
