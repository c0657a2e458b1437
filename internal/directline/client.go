// ABOUTME: HTTP client for the Direct Line activity-exchange API.
// ABOUTME: Start conversations, post activities, and poll the activity feed.

package directline

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
	"time"
)

// DefaultBaseURL is the public Direct Line endpoint.
const DefaultBaseURL = "https://directline.botframework.com"

// maxErrorBody caps how much of an error response body is retained.
const maxErrorBody = 2048

// RequestError is a non-success response from the backend API.
type RequestError struct {
	Operation string
	Status    int
	Body      string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("directline %s: unexpected status %d: %s", e.Operation, e.Status, e.Body)
}

// Client talks to the Direct Line REST API. Tokens are passed per call
// because each conversation carries its own scoped token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Direct Line client. An empty baseURL selects the
// public endpoint; pass nil for the default HTTP client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With("component", "directline"),
	}
}

// StartConversation opens a new backend conversation using a bootstrap
// token and returns its id and per-conversation token.
func (c *Client) StartConversation(ctx context.Context, token string) (*Conversation, error) {
	endpoint := c.baseURL + "/v3/directline/conversations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building start conversation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("starting conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, requestError("start conversation", resp)
	}

	var conv Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", err)
	}
	if conv.Token == "" {
		conv.Token = token
	}

	c.logger.Debug("conversation started", "conversation_id", conv.ConversationID)
	return &conv, nil
}

// PostActivity sends one activity into a conversation.
func (c *Client) PostActivity(ctx context.Context, token, conversationID string, activity *Activity) error {
	body, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("encoding activity: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v3/directline/conversations/%s/activities",
		c.baseURL, url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building post activity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting activity: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return requestError("post activity", resp)
	}

	c.logger.Debug("activity posted",
		"conversation_id", conversationID,
		"type", activity.Type,
	)
	return nil
}

// GetActivities fetches one page of the conversation's activity feed,
// starting after the given watermark. An empty watermark fetches from
// the beginning.
func (c *Client) GetActivities(ctx context.Context, token, conversationID, watermark string) (*ActivitySet, error) {
	endpoint := fmt.Sprintf("%s/v3/directline/conversations/%s/activities",
		c.baseURL, url.PathEscape(conversationID))
	if watermark != "" {
		endpoint += "?watermark=" + url.QueryEscape(watermark)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building get activities request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching activities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, requestError("get activities", resp)
	}

	var set ActivitySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decoding activity set: %w", err)
	}

	c.logger.Debug("activities fetched",
		"conversation_id", conversationID,
		"count", len(set.Activities),
		"watermark", set.Watermark,
	)
	return &set, nil
}

// requestError builds a RequestError from a non-2xx response, retaining a
// bounded slice of the body for diagnostics.
func requestError(operation string, resp *http.Response) *RequestError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &RequestError{
		Operation: operation,
		Status:    resp.StatusCode,
		Body:      strings.TrimSpace(string(body)),
	}
}
