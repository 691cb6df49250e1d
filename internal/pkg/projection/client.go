// Package projection mirrors canonical state into an external task-tracker
// API. The mirror is best-effort: it is never read back for decisions and a
// failure here must never fail the originating request.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vadesk/VADesk/internal/pkg/config"
)

const defaultBaseURL = "https://api.trello.com/1"

// Client talks to a Trello-style card API with key+token query auth.
type Client struct {
	BaseURL        string
	Key            string
	Token          string
	SupportListID  string
	PaymentsListID string

	HTTPClient *http.Client
}

// NewClient builds the sink client from config. Returns nil when no sink is
// configured; all methods are nil-safe.
func NewClient(cfg *config.Config) *Client {
	if !cfg.ProjectionEnabled() {
		return nil
	}
	base := cfg.ProjectionBaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		BaseURL:        strings.TrimRight(base, "/"),
		Key:            cfg.ProjectionKey,
		Token:          cfg.ProjectionToken,
		SupportListID:  cfg.ProjectionSupportListID,
		PaymentsListID: cfg.ProjectionPaymentsListID,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the sink is configured.
func (c *Client) Enabled() bool {
	return c != nil
}

type cardResponse struct {
	ID string `json:"id"`
}

// CreateCard creates a card on the given list and returns its id.
func (c *Client) CreateCard(ctx context.Context, listID, name, desc string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("projection sink is not configured")
	}
	if listID == "" {
		return "", fmt.Errorf("projection list id is not configured")
	}

	form := url.Values{
		"idList": {listID},
		"name":   {name},
		"desc":   {desc},
	}
	var card cardResponse
	if err := c.postForm(ctx, "/cards", form, &card); err != nil {
		return "", err
	}
	return card.ID, nil
}

// CommentCard appends a comment to an existing card.
func (c *Client) CommentCard(ctx context.Context, cardID, text string) error {
	if c == nil {
		return fmt.Errorf("projection sink is not configured")
	}
	form := url.Values{"text": {text}}
	return c.postForm(ctx, fmt.Sprintf("/cards/%s/actions/comments", cardID), form, nil)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	form.Set("key", c.Key)
	form.Set("token", c.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("projection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("projection API returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode projection response: %w", err)
		}
	}
	return nil
}
