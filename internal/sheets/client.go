// Package sheets writes chat and report records to the school's spreadsheet
// through an Apps Script web app.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no web app URL was provided.
var ErrNotConfigured = errors.New("sheets webhook not configured")

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type Client struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		cl.now = now
	}
}

func NewClient(webhookURL string, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimSpace(webhookURL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the web app URL is set.
func (c *Client) Configured() bool {
	return c.url != ""
}

// LogChat appends one chat line to the ChatLogs sheet.
func (c *Client) LogChat(ctx context.Context, sender, text string) error {
	form := url.Values{}
	form.Set("action", "logChat")
	form.Set("timestamp", c.timestamp())
	form.Set("sender", sender)
	form.Set("text", text)
	return c.post(ctx, form)
}

// LogReport appends one submitted report to the Reports sheet.
func (c *Client) LogReport(ctx context.Context, category, description string, hasImage bool) error {
	form := url.Values{}
	form.Set("action", "logReport")
	form.Set("timestamp", c.timestamp())
	form.Set("category", category)
	form.Set("description", description)
	form.Set("hasImage", strconv.FormatBool(hasImage))
	return c.post(ctx, form)
}

func (c *Client) timestamp() string {
	return c.now().UTC().Format(timestampLayout)
}

// scriptResponse is what the Apps Script returns, always with HTTP 200.
type scriptResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) post(ctx context.Context, form url.Values) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", form.Get("action"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sheets webhook error: status %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var sr scriptResponse
	if json.Unmarshal(body, &sr) == nil && sr.Status == "error" {
		return fmt.Errorf("sheets script error: %s", sr.Message)
	}
	return nil
}
