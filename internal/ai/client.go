// Package ai is a small client for the Gemini generateContent, streaming, and
// Live APIs.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultLiveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	maxResponse    = 4 << 20
)

var (
	// ErrNotConfigured is returned by every call when no API key is set.
	ErrNotConfigured = errors.New("gemini api key not configured")
	// ErrEmptyResponse is returned when a call succeeds without any text.
	ErrEmptyResponse = errors.New("gemini returned empty response")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini http %d", e.StatusCode)
}

type Client struct {
	apiKey     string
	model      string
	liveModel  string
	baseURL    string
	liveURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL points REST calls at a different API root.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(u, "/")
	}
}

// WithLiveURL points Live sessions at a different websocket endpoint.
func WithLiveURL(u string) Option {
	return func(cl *Client) {
		cl.liveURL = u
	}
}

// WithLiveModel sets the model used by ConnectLive.
func WithLiveModel(m string) Option {
	return func(cl *Client) {
		cl.liveModel = strings.TrimSpace(m)
	}
}

func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		baseURL: defaultBaseURL,
		liveURL: defaultLiveURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// InlineData is a base64 payload sent alongside a prompt.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	Tools             []tool            `json:"tools,omitempty"`
	ToolConfig        *toolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type candidate struct {
	Content           content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

// text joins the text parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// GenerateContent sends one prompt, optionally with an inline image, and
// returns the model's text.
func (c *Client) GenerateContent(ctx context.Context, prompt string, inline *InlineData) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	var parts []part
	if inline != nil {
		parts = append(parts, part{InlineData: inline})
	}
	parts = append(parts, part{Text: prompt})

	resp, err := c.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.baseURL, c.model, method)
}

func (c *Client) newRequest(ctx context.Context, url string, body generateRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	return req, nil
}

func (c *Client) generate(ctx context.Context, body generateRequest) (*generateResponse, error) {
	req, err := c.newRequest(ctx, c.endpoint("generateContent"), body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}

	var parsed generateResponse
	jsonErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr == nil && parsed.Error != nil {
			apiErr.Message = parsed.Error.Message
		}
		return nil, apiErr
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("decode gemini response: %w", jsonErr)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}
	return &parsed, nil
}

// readAPIError builds an APIError from a failed streaming response.
func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var parsed generateResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error != nil {
		apiErr.Message = parsed.Error.Message
	}
	return apiErr
}
