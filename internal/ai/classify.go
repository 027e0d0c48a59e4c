package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is returned when structured output does not match the schema.
var ErrMalformedResponse = errors.New("malformed structured response")

// Classification is the model's pick among the offered categories.
type Classification struct {
	SuggestedCategory string `json:"suggestedCategory"`
	Reason            string `json:"reason"`
}

// Classify asks the model to choose one of categories for text, using a JSON
// response schema. The result is not checked against categories.
func (c *Client) Classify(ctx context.Context, text string, categories []string) (Classification, error) {
	if !c.Enabled() {
		return Classification{}, ErrNotConfigured
	}

	list := strings.Join(categories, ", ")
	prompt := fmt.Sprintf("Analiziraj sljedeći opis prijave i odaberi najprikladniju kategoriju s popisa. Opis: \"%s\". Dostupne kategorije: %s.", text, list)

	resp, err := c.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema: &schema{
				Type: "OBJECT",
				Properties: map[string]*schema{
					"suggestedCategory": {
						Type:        "STRING",
						Description: "Jedna od sljedećih vrijednosti: " + list,
					},
					"reason": {
						Type:        "STRING",
						Description: "Kratko objašnjenje zašto je ova kategorija najbolja (na hrvatskom).",
					},
				},
				Required: []string{"suggestedCategory", "reason"},
			},
		},
	})
	if err != nil {
		return Classification{}, err
	}

	var out Classification
	raw := strings.TrimSpace(resp.text())
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Classification{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(out.SuggestedCategory) == "" {
		return Classification{}, fmt.Errorf("%w: missing suggestedCategory", ErrMalformedResponse)
	}
	return out, nil
}
