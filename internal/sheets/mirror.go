package sheets

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const defaultMirrorTimeout = 15 * time.Second

// Mirror sends records in the background. Failures are logged and never
// reach the caller.
type Mirror struct {
	client  *Client
	logger  *slog.Logger
	timeout time.Duration

	wg       sync.WaitGroup
	warnOnce sync.Once
}

func NewMirror(client *Client, logger *slog.Logger) *Mirror {
	return &Mirror{
		client:  client,
		logger:  logger,
		timeout: defaultMirrorTimeout,
	}
}

// LogChat mirrors one chat line without blocking.
func (m *Mirror) LogChat(sender, text string) {
	m.run("logChat", func(ctx context.Context) error {
		return m.client.LogChat(ctx, sender, text)
	})
}

// LogReport mirrors one report without blocking.
func (m *Mirror) LogReport(category, description string, hasImage bool) {
	m.run("logReport", func(ctx context.Context) error {
		return m.client.LogReport(ctx, category, description, hasImage)
	})
}

// Wait blocks until every pending record has been sent or has failed.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

func (m *Mirror) run(action string, fn func(context.Context) error) {
	if !m.client.Configured() {
		m.warnOnce.Do(func() {
			m.logger.Warn("spreadsheet logging is not configured, set SHEETS_WEBHOOK_URL")
		})
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := fn(ctx); err != nil && !errors.Is(err, ErrNotConfigured) {
			m.logger.Error("spreadsheet log failed", "action", action, "error", err)
		}
	}()
}
