// ABOUTME: Resolves backend sign-in prompts with service-account credentials.
// ABOUTME: Acquires a token non-interactively and posts a token-exchange invoke.

package silentauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/relay-gateway/internal/directline"
	"github.com/2389/relay-gateway/internal/session"
)

// InvokeName is the well-known invoke activity name the backend expects
// as the answer to a sign-in prompt.
const InvokeName = "signin/tokenExchange"

// ErrCredentials indicates the identity provider rejected the service
// account. The handler logs and drops the prompt rather than failing the
// enclosing turn.
var ErrCredentials = errors.New("credential acquisition failed")

// TokenSource acquires an access token for the downstream resource scopes
// without user interaction.
type TokenSource interface {
	AcquireToken(ctx context.Context) (string, error)
}

// ActivityPoster posts an activity into a backend conversation. Satisfied
// by the directline client.
type ActivityPoster interface {
	PostActivity(ctx context.Context, token, conversationID string, activity *directline.Activity) error
}

// tokenExchangeValue is the invoke payload: the prompt's own activity id
// plus the acquired token.
type tokenExchangeValue struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Handler answers sign-in prompts on behalf of a service identity.
type Handler struct {
	tokens  TokenSource
	backend ActivityPoster
	logger  *slog.Logger
}

// NewHandler creates a Handler over the given token source and backend.
func NewHandler(tokens TokenSource, backend ActivityPoster, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tokens:  tokens,
		backend: backend,
		logger:  logger.With("component", "silentauth"),
	}
}

// Handle resolves one sign-in prompt. Credential failures are logged and
// swallowed; the prompt is simply dropped and the user never sees it.
// A failure posting the exchange back to the backend is a backend error
// and propagates.
func (h *Handler) Handle(ctx context.Context, sess *session.Session, prompt *directline.Activity) error {
	token, err := h.tokens.AcquireToken(ctx)
	if err != nil {
		h.logger.Error("dropping sign-in prompt",
			"conversation_id", sess.ConversationID,
			"activity_id", prompt.ID,
			"error", err,
		)
		return nil
	}

	// Address the exchange to the account the prompt was aimed at.
	var from directline.ChannelAccount
	if prompt.Recipient != nil {
		from = *prompt.Recipient
	}

	invoke := &directline.Activity{
		Type: directline.ActivityTypeInvoke,
		Name: InvokeName,
		From: from,
		Value: tokenExchangeValue{
			ID:    prompt.ID,
			Token: token,
		},
	}

	if err := h.backend.PostActivity(ctx, sess.Token, sess.ConversationID, invoke); err != nil {
		return fmt.Errorf("posting token exchange: %w", err)
	}

	h.logger.Info("sign-in prompt resolved",
		"conversation_id", sess.ConversationID,
		"activity_id", prompt.ID,
	)
	return nil
}

// PasswordTokenSource acquires tokens with a resource-owner password
// grant against the identity provider's token endpoint.
type PasswordTokenSource struct {
	TokenURL string
	ClientID string
	Username string
	Password string
	Scopes   []string

	httpClient *http.Client
}

// NewPasswordTokenSource creates a password-grant token source. Pass nil
// for the default HTTP client.
func NewPasswordTokenSource(tokenURL, clientID, username, password string, scopes []string, httpClient *http.Client) *PasswordTokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &PasswordTokenSource{
		TokenURL:   tokenURL,
		ClientID:   clientID,
		Username:   username,
		Password:   password,
		Scopes:     scopes,
		httpClient: httpClient,
	}
}

// AcquireToken requests an access token for the configured scopes.
func (s *PasswordTokenSource) AcquireToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {s.ClientID},
		"username":   {s.Username},
		"password":   {s.Password},
		"scope":      {strings.Join(s.Scopes, " ")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: status %d: %s", ErrCredentials, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrCredentials, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrCredentials)
	}
	return payload.AccessToken, nil
}
