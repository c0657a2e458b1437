// ABOUTME: HTTP server for the external channel's single message endpoint.
// ABOUTME: Dispatches turns to the relay and wraps turn errors.

package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/relay-gateway/internal/dedupe"
)

// Replay suppression window and capacity for redelivered webhooks.
const (
	dedupeTTL     = 5 * time.Minute
	dedupeMaxSize = 10000
)

// turnErrorText is the generic failure message shown to the user when a
// turn fails. The real error is logged, never surfaced.
const turnErrorText = "Something went wrong and I couldn't process that. Please try again."

// TurnHandler is the relay surface the server dispatches turns to.
type TurnHandler interface {
	OnConversationStart(ctx context.Context, externalID string) error
	OnInboundMessage(ctx context.Context, externalID string, msg InboundMessage) error
}

// Server exposes POST /api/messages to the external channel.
type Server struct {
	turns     TurnHandler
	connector *Connector
	verifier  TokenVerifier
	replays   *dedupe.Cache
	logger    *slog.Logger
}

// NewServer creates a channel server. A nil verifier disables auth.
func NewServer(turns TurnHandler, connector *Connector, verifier TokenVerifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		turns:     turns,
		connector: connector,
		verifier:  verifier,
		replays:   dedupe.New(dedupeTTL, dedupeMaxSize),
		logger:    logger.With("component", "channel"),
	}
}

// Router builds the HTTP handler for the channel surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.verifier))
		r.Post("/api/messages", s.handleMessages)
	})
	return r
}

// Close releases the server's background resources.
func (s *Server) Close() {
	s.replays.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleMessages receives one turn from the external channel. Redelivered
// activities are acknowledged without dispatch. The turn blocks until the
// relay finishes waiting for the agent's replies, so the channel sees the
// turn complete only after delivery.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var activity InboundActivity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		http.Error(w, `{"error":"malformed activity"}`, http.StatusBadRequest)
		return
	}
	if activity.Conversation.ID == "" {
		http.Error(w, `{"error":"conversation id required"}`, http.StatusBadRequest)
		return
	}

	s.connector.RememberRoute(activity.Conversation.ID, activity.ServiceURL)

	if activity.ID != "" && s.replays.Seen(activity.ID) {
		s.logger.Debug("duplicate activity ignored",
			"activity_id", activity.ID,
			"external_id", activity.Conversation.ID,
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	switch activity.Type {
	case ActivityTypeConversationUpdate:
		s.dispatchConversationStart(r.Context(), &activity)
	case ActivityTypeMessage:
		s.dispatchMessage(r.Context(), &activity)
	default:
		s.logger.Debug("ignoring activity type", "type", activity.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) dispatchConversationStart(ctx context.Context, activity *InboundActivity) {
	if err := s.turns.OnConversationStart(ctx, activity.Conversation.ID); err != nil {
		s.failTurn(ctx, activity.Conversation.ID, err)
	}
}

// dispatchMessage runs one message turn, converting any failure into a
// generic user-visible apology plus a log entry.
func (s *Server) dispatchMessage(ctx context.Context, activity *InboundActivity) {
	err := s.turns.OnInboundMessage(ctx, activity.Conversation.ID, InboundMessage{
		Text:       activity.Text,
		TextFormat: activity.TextFormat,
		Locale:     activity.Locale,
		FromID:     activity.From.ID,
		FromName:   activity.From.Name,
	})
	if err != nil {
		s.failTurn(ctx, activity.Conversation.ID, err)
	}
}

// failTurn logs a turn error and sends the generic failure message. Any
// failed turn gets the same apology regardless of which kind of activity
// started it; the route was learned before dispatch.
func (s *Server) failTurn(ctx context.Context, externalID string, err error) {
	s.logger.Error("turn failed",
		"external_id", externalID,
		"error", err,
	)
	apology := &Message{Type: ActivityTypeMessage, Text: turnErrorText}
	if sendErr := s.connector.Send(ctx, externalID, apology); sendErr != nil {
		s.logger.Error("failed to send turn error message",
			"external_id", externalID,
			"error", sendErr,
		)
	}
}
