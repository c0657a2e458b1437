// ABOUTME: Connector client posting outbound replies back to the channel.
// ABOUTME: Learns each conversation's service URL from inbound traffic.

package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNoRoute indicates no service URL is known for a conversation. The
// route is learned from the conversation's inbound activities.
type ErrNoRoute struct {
	ConversationID string
}

func (e *ErrNoRoute) Error() string {
	return fmt.Sprintf("no reply route for conversation %s", e.ConversationID)
}

// Connector delivers outbound messages to the external channel. Each
// conversation's reply endpoint is remembered from the serviceUrl on its
// inbound activities; sends for unknown conversations fail with
// ErrNoRoute. Implements the relay Sender.
type Connector struct {
	mu         sync.RWMutex
	routes     map[string]string // external conversation id -> service URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewConnector creates a Connector. Pass nil for the default HTTP client.
func NewConnector(httpClient *http.Client, logger *slog.Logger) *Connector {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		routes:     make(map[string]string),
		httpClient: httpClient,
		logger:     logger.With("component", "connector"),
	}
}

// RememberRoute records the reply endpoint for a conversation. Called on
// every inbound activity; the latest serviceUrl wins.
func (c *Connector) RememberRoute(externalID, serviceURL string) {
	if serviceURL == "" {
		return
	}
	c.mu.Lock()
	c.routes[externalID] = strings.TrimRight(serviceURL, "/")
	c.mu.Unlock()
}

// Send posts one message to the conversation's reply endpoint.
func (c *Connector) Send(ctx context.Context, externalID string, msg *Message) error {
	c.mu.RLock()
	serviceURL, ok := c.routes[externalID]
	c.mu.RUnlock()
	if !ok {
		return &ErrNoRoute{ConversationID: externalID}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v3/conversations/%s/activities",
		serviceURL, url.PathEscape(externalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("channel send: unexpected status %d", resp.StatusCode)
	}

	c.logger.Debug("message sent",
		"external_id", externalID,
		"has_attachments", len(msg.Attachments) > 0,
	)
	return nil
}
