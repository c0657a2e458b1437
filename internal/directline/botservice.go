// ABOUTME: Bootstrap token client for the bot's Direct Line channel.
// ABOUTME: Fetches a conversation token from the configured token endpoint.

package directline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrMissingConfig indicates a required bot service setting is absent.
// Validation happens before any network call is made.
var ErrMissingConfig = errors.New("missing bot service configuration")

// BotService fetches bootstrap tokens for opening backend conversations.
type BotService struct {
	// Name is the display name the backend agent replies under. Reply
	// filtering matches against it exactly.
	Name string

	// BotID and TenantID identify the agent against the token endpoint.
	BotID    string
	TenantID string

	// TokenEndpoint issues Direct Line tokens for the agent.
	TokenEndpoint string

	httpClient *http.Client
	logger     *slog.Logger
}

// NewBotService creates a token client. Pass nil for the default HTTP client.
func NewBotService(name, botID, tenantID, tokenEndpoint string, httpClient *http.Client, logger *slog.Logger) *BotService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BotService{
		Name:          name,
		BotID:         botID,
		TenantID:      tenantID,
		TokenEndpoint: tokenEndpoint,
		httpClient:    httpClient,
		logger:        logger.With("component", "botservice"),
	}
}

// BotName returns the agent's display name used for reply filtering.
func (b *BotService) BotName() string {
	return b.Name
}

// FetchToken retrieves a bootstrap token from the token endpoint.
// Missing configuration fails fast before any request is sent.
func (b *BotService) FetchToken(ctx context.Context) (string, error) {
	if b.TokenEndpoint == "" {
		return "", fmt.Errorf("%w: token_endpoint", ErrMissingConfig)
	}
	if b.BotID == "" {
		return "", fmt.Errorf("%w: bot_id", ErrMissingConfig)
	}
	if b.TenantID == "" {
		return "", fmt.Errorf("%w: tenant_id", ErrMissingConfig)
	}

	endpoint, err := url.Parse(b.TokenEndpoint)
	if err != nil {
		return "", fmt.Errorf("parsing token endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("botId", b.BotID)
	query.Set("tenantId", b.TenantID)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", requestError("fetch token", resp)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if payload.Token == "" {
		return "", errors.New("token endpoint returned an empty token")
	}

	b.logger.Debug("bootstrap token fetched", "bot_id", b.BotID)
	return payload.Token, nil
}
