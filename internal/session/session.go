// ABOUTME: Session record mapping an external conversation to a backend one.
// ABOUTME: Guards the progress watermark with monotonic advance semantics.

package session

import (
	"strconv"
	"sync"
	"time"
)

// Session links one external conversation to one backend conversation.
// ConversationID and Token are set at creation and never change; the
// watermark only moves forward.
type Session struct {
	// ExternalID is the channel-assigned conversation identity, the
	// registry key.
	ExternalID string

	// ConversationID is the backend conversation opened for this session.
	ConversationID string

	// Token is the backend bearer credential scoped to ConversationID.
	Token string

	mu             sync.Mutex
	watermark      string
	lastActivityAt time.Time
}

// Watermark returns the current progress marker, empty if nothing has
// been delivered yet.
func (s *Session) Watermark() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// Advance moves the watermark to candidate if it is strictly greater than
// the stored marker, and reports whether it moved. The watermark never
// decreases.
func (s *Session) Advance(candidate string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !watermarkGreater(candidate, s.watermark) {
		return false
	}
	s.watermark = candidate
	return true
}

// Touch records the wall-clock time of the latest inbound turn.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivityAt = time.Now()
}

// LastActivityAt returns when the session last saw an inbound turn.
func (s *Session) LastActivityAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivityAt
}

// WatermarkGreater reports whether candidate is strictly greater than
// current under the backend's numeric watermark ordering. An absent or
// malformed current marker counts as zero; a malformed candidate is never
// greater, so a garbage page marker aborts a poll pass instead of
// advancing or panicking.
func WatermarkGreater(candidate, current string) bool {
	return watermarkGreater(candidate, current)
}

func watermarkGreater(candidate, current string) bool {
	cand, err := strconv.ParseInt(candidate, 10, 64)
	if err != nil {
		return false
	}
	cur, err := strconv.ParseInt(current, 10, 64)
	if err != nil {
		cur = 0
	}
	return cand > cur
}
