package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Chunk is one streamed fragment. A chunk with Err set is the last one.
type Chunk struct {
	Text string
	Err  error
}

// ChatSession is a multi-turn conversation with a fixed system instruction.
type ChatSession struct {
	client *Client
	system string

	mu      sync.Mutex
	history []content
}

// StartChat opens a conversation. No request is made until the first message.
func (c *Client) StartChat(systemInstruction string) *ChatSession {
	return &ChatSession{client: c, system: systemInstruction}
}

// History returns the number of completed turns, counting user and model separately.
func (s *ChatSession) History() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// SendMessageStream sends text and streams the reply in arrival order. The
// channel is closed after the final chunk. The exchange joins the history
// only when the stream completes without error.
func (s *ChatSession) SendMessageStream(ctx context.Context, text string) (<-chan Chunk, error) {
	if !s.client.Enabled() {
		return nil, ErrNotConfigured
	}

	userTurn := content{Role: "user", Parts: []part{{Text: text}}}

	s.mu.Lock()
	contents := make([]content, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	contents = append(contents, userTurn)
	s.mu.Unlock()

	body := generateRequest{Contents: contents}
	if s.system != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: s.system}}}
	}

	req, err := s.client.newRequest(ctx, s.client.endpoint("streamGenerateContent")+"?alt=sse", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.streamingClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini stream request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		send := func(ch Chunk) bool {
			select {
			case out <- ch:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var reply strings.Builder
		err := readSSE(resp.Body, func(data []byte) error {
			var ev generateResponse
			if err := json.Unmarshal(data, &ev); err != nil {
				return fmt.Errorf("decode stream event: %w", err)
			}
			if ev.Error != nil {
				return fmt.Errorf("gemini stream error: %s", ev.Error.Message)
			}
			t := ev.text()
			if t == "" {
				return nil
			}
			reply.WriteString(t)
			if !send(Chunk{Text: t}) {
				return ctx.Err()
			}
			return nil
		})
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			send(Chunk{Err: err})
			return
		}

		s.mu.Lock()
		s.history = append(s.history, userTurn, content{Role: "model", Parts: []part{{Text: reply.String()}}})
		s.mu.Unlock()
	}()

	return out, nil
}

// streamingClient drops the overall timeout, which would cut long replies;
// cancellation comes from the request context instead.
func (c *Client) streamingClient() *http.Client {
	cl := *c.httpClient
	cl.Timeout = 0
	return &cl
}

// readSSE calls fn with the data of each server-sent event.
func readSSE(r io.Reader, fn func([]byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxResponse)

	var data bytes.Buffer
	flush := func() error {
		if data.Len() == 0 {
			return nil
		}
		defer data.Reset()
		return fn(data.Bytes())
	}

	for sc.Scan() {
		line := sc.Bytes()
		switch {
		case len(line) == 0:
			if err := flush(); err != nil {
				return err
			}
		case bytes.HasPrefix(line, []byte("data:")):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.Write(bytes.TrimPrefix(bytes.TrimPrefix(line, []byte("data:")), []byte(" ")))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return flush()
}
