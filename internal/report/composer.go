// Package report composes issue reports and suggestions for the school.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/prometna/internal/ai"
)

const (
	imagePrompt       = "Opiši problem prikazan na ovoj slici u kontekstu školske okoline. Budi sažet i jasan."
	imageAnalysisFail = "Došlo je do pogreške prilikom analize slike."

	ReceiptTitle = "Prijava poslana!"
)

// ErrIncomplete is returned when a draft lacks a category or any content.
var ErrIncomplete = errors.New("report needs a category and a description or image")

// Assistant is the part of the AI client the composer uses.
type Assistant interface {
	Enabled() bool
	GenerateContent(ctx context.Context, prompt string, inline *ai.InlineData) (string, error)
	Classify(ctx context.Context, text string, categories []string) (ai.Classification, error)
}

// Sink records submitted reports. Calls must not block.
type Sink interface {
	LogReport(category, description string, hasImage bool)
}

// Receipt is shown after a report is accepted.
type Receipt struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
}

type Composer struct {
	assistant Assistant
	sink      Sink
	logger    *slog.Logger
}

func NewComposer(assistant Assistant, sink Sink, logger *slog.Logger) *Composer {
	return &Composer{
		assistant: assistant,
		sink:      sink,
		logger:    logger,
	}
}

// AnalyzeImage describes the problem shown in img. Failures yield a fixed
// message instead of an error.
func (c *Composer) AnalyzeImage(ctx context.Context, img Image) string {
	text, err := c.assistant.GenerateContent(ctx, imagePrompt, &ai.InlineData{
		MIMEType: img.MIMEType,
		Data:     img.Base64(),
	})
	if err != nil {
		c.logger.Error("analyze image", "image", img.Name, "error", err)
		return imageAnalysisFail
	}
	return text
}

// SuggestCategory proposes a category for description. It returns nil when the
// model answers with something unusable. Without an AI key it falls back to
// keyword matching.
func (c *Composer) SuggestCategory(ctx context.Context, description string) *Suggestion {
	if strings.TrimSpace(description) == "" {
		return nil
	}
	if !c.assistant.Enabled() {
		return Categorize(description)
	}

	res, err := c.assistant.Classify(ctx, description, CategoryNames())
	if err != nil {
		c.logger.Warn("suggest category", "error", err)
		return nil
	}
	cat, ok := ParseCategory(strings.TrimSpace(res.SuggestedCategory))
	if !ok {
		c.logger.Warn("suggested category is not offered", "category", res.SuggestedCategory)
		return nil
	}
	return &Suggestion{Category: cat, Reason: res.Reason}
}

// Submit accepts the draft. The report is mirrored to the sink in the
// background; nothing is stored.
func (c *Composer) Submit(ctx context.Context, d *Draft) (Receipt, error) {
	if !d.CanSubmit() {
		return Receipt{}, ErrIncomplete
	}

	c.sink.LogReport(string(d.Category()), d.Description(), d.Image() != nil)

	c.logger.Info("report submitted", "category", d.Category(), "has_image", d.Image() != nil)
	return Receipt{
		Title:    ReceiptTitle,
		Message:  receiptMessage(d.Category()),
		Category: d.Category(),
	}, nil
}

func receiptMessage(c Category) string {
	return fmt.Sprintf("Hvala vam na doprinosu poboljšanju naše škole. Vaša prijava (%s) je zaprimljena i bit će obrađena u najkraćem roku.", c)
}
