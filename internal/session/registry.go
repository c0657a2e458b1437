// ABOUTME: Registry mapping external conversation ids to backend sessions.
// ABOUTME: Guarantees at-most-once backend conversation creation per id.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrSessionCreation wraps a provider failure while opening a backend
// conversation. No partial session is stored; a later call retries.
var ErrSessionCreation = errors.New("session creation failed")

// Provider opens a fresh backend conversation for a new session.
type Provider interface {
	Open(ctx context.Context) (conversationID, token string, err error)
}

// creation tracks one in-flight provider call. Concurrent callers for the
// same new id wait on done and observe the winner's result.
type creation struct {
	done chan struct{}
	sess *Session
	err  error
}

// Registry owns the external-id to session map. One instance is built at
// process startup and handed to the orchestrator; there is no package
// singleton.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	inflight map[string]*creation
	provider Provider
	logger   *slog.Logger
}

// NewRegistry creates a registry backed by the given provider.
func NewRegistry(provider Provider, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		inflight: make(map[string]*creation),
		provider: provider,
		logger:   logger.With("component", "sessions"),
	}
}

// GetOrCreate returns the session for externalID, opening a backend
// conversation if none exists. Under concurrent first turns for the same
// id exactly one provider call is made; the other callers block until it
// completes and share its outcome.
func (r *Registry) GetOrCreate(ctx context.Context, externalID string) (*Session, error) {
	r.mu.Lock()
	if sess, ok := r.sessions[externalID]; ok {
		r.mu.Unlock()
		return sess, nil
	}
	if c, ok := r.inflight[externalID]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.sess, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &creation{done: make(chan struct{})}
	r.inflight[externalID] = c
	r.mu.Unlock()

	conversationID, token, err := r.provider.Open(ctx)

	r.mu.Lock()
	delete(r.inflight, externalID)
	if err != nil {
		c.err = fmt.Errorf("%w for %s: %w", ErrSessionCreation, externalID, err)
		r.mu.Unlock()
		close(c.done)
		r.logger.Error("backend conversation creation failed",
			"external_id", externalID,
			"error", err,
		)
		return nil, c.err
	}

	sess := &Session{
		ExternalID:     externalID,
		ConversationID: conversationID,
		Token:          token,
	}
	r.sessions[externalID] = sess
	c.sess = sess
	r.mu.Unlock()
	close(c.done)

	r.logger.Info("session created",
		"external_id", externalID,
		"conversation_id", conversationID,
	)
	return sess, nil
}

// Get returns the session for externalID if one exists.
func (r *Registry) Get(externalID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[externalID]
	return sess, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
