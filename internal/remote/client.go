// Package remote is the HTTP client for the ladderlog record-store API.
// It implements the sync reconciler's RemoteStore contract.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ladderlog/internal/models"
	"github.com/meltforce/ladderlog/internal/syncer"
)

const insertAttempts = 3

// Client talks to a ladderlog-server over HTTP. The bearer token
// identifies the user; the server scopes every query to it.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Compile-time check: Client satisfies the reconciler's RemoteStore.
var _ syncer.RemoteStore = (*Client)(nil)

// NewClient creates a client for the given base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("remote: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote: %s %s returned %d: %s", method, path, resp.StatusCode, respBody)
	}
	return respBody, nil
}

// Insert uploads one session record. Retries up to 3 times with
// exponential backoff; the server treats a duplicate ID as a no-op, so
// retrying a request whose response was lost is safe.
func (c *Client) Insert(ctx context.Context, rec models.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("remote: marshaling session: %w", err)
	}

	var lastErr error
	for attempt := range insertAttempts {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if _, lastErr = c.do(ctx, http.MethodPost, "/api/v1/sessions", data); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("remote: after %d attempts: %w", insertAttempts, lastErr)
}

// FetchForUser returns the authenticated user's sessions. The server
// derives the user from the bearer token; userID is unused on the wire
// and exists to satisfy the RemoteStore contract.
func (c *Client) FetchForUser(ctx context.Context, _ uuid.UUID) ([]models.SessionRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/sessions", nil)
	if err != nil {
		return nil, err
	}
	var recs []models.SessionRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("remote: decoding sessions: %w", err)
	}
	return recs, nil
}

// Delete removes one session from the remote store.
func (c *Client) Delete(ctx context.Context, id, _ uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/sessions/"+id.String(), nil)
	return err
}

// DeleteAll erases every session the token's user owns. Used for account
// erasure.
func (c *Client) DeleteAll(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/sessions", nil)
	return err
}

// Me returns the user ID the server resolves the bearer token to.
func (c *Client) Me(ctx context.Context) (uuid.UUID, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/me", nil)
	if err != nil {
		return uuid.Nil, err
	}
	var me struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return uuid.Nil, fmt.Errorf("remote: decoding identity: %w", err)
	}
	return me.UserID, nil
}
