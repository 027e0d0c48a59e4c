package ai

import (
	"context"
	"encoding/json"
	"strings"
)

// Tool selects the grounding source for Grounded.
type Tool interface {
	apply(req *generateRequest, query string) string
}

// SearchTool grounds answers in Google Search, narrowed to Site when set.
type SearchTool struct {
	Site string
}

func (t SearchTool) apply(req *generateRequest, query string) string {
	req.Tools = []tool{{GoogleSearch: &struct{}{}}}
	if t.Site != "" {
		return query + " site:" + t.Site
	}
	return query
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is within range.
func (l LatLng) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// MapsTool grounds answers in Google Maps around an optional location.
type MapsTool struct {
	LatLng *LatLng
}

func (t MapsTool) apply(req *generateRequest, query string) string {
	req.Tools = []tool{{GoogleMaps: &struct{}{}}}
	if t.LatLng != nil {
		req.ToolConfig = &toolConfig{RetrievalConfig: &retrievalConfig{LatLng: t.LatLng}}
	}
	return query
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
	GoogleMaps   *struct{} `json:"googleMaps,omitempty"`
}

type toolConfig struct {
	RetrievalConfig *retrievalConfig `json:"retrievalConfig,omitempty"`
}

type retrievalConfig struct {
	LatLng *LatLng `json:"latLng,omitempty"`
}

type CitationKind string

const (
	CitationWeb  CitationKind = "web"
	CitationMaps CitationKind = "maps"
)

// ReviewSnippet is a user review Maps used to support an answer.
type ReviewSnippet struct {
	URI  string `json:"uri,omitempty"`
	Text string `json:"text,omitempty"`
}

// Citation is one grounding source, either a web page or a Maps place.
type Citation struct {
	Kind    CitationKind    `json:"kind"`
	URI     string          `json:"uri,omitempty"`
	Title   string          `json:"title,omitempty"`
	Reviews []ReviewSnippet `json:"reviews,omitempty"`
}

// GroundedAnswer is a model answer with the sources it relied on.
type GroundedAnswer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"sources"`
}

// Grounded answers query with the given grounding tool.
func (c *Client) Grounded(ctx context.Context, query string, t Tool) (GroundedAnswer, error) {
	if !c.Enabled() {
		return GroundedAnswer{}, ErrNotConfigured
	}

	var req generateRequest
	prompt := t.apply(&req, query)
	req.Contents = []content{{Role: "user", Parts: []part{{Text: prompt}}}}

	resp, err := c.generate(ctx, req)
	if err != nil {
		return GroundedAnswer{}, err
	}
	text := strings.TrimSpace(resp.text())
	if text == "" {
		return GroundedAnswer{}, ErrEmptyResponse
	}

	answer := GroundedAnswer{Text: text, Citations: []Citation{}}
	if md := resp.Candidates[0].GroundingMetadata; md != nil {
		answer.Citations = parseCitations(md.GroundingChunks)
	}
	return answer, nil
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web,omitempty"`
	Maps *struct {
		URI                string          `json:"uri"`
		Title              string          `json:"title"`
		PlaceAnswerSources json.RawMessage `json:"placeAnswerSources,omitempty"`
	} `json:"maps,omitempty"`
}

type placeAnswerSources struct {
	ReviewSnippets []struct {
		URI           string `json:"uri"`
		GoogleMapsURI string `json:"googleMapsUri"`
		ReviewText    string `json:"reviewText"`
		Title         string `json:"title"`
	} `json:"reviewSnippets"`
}

// parseCitations keeps every chunk it can make sense of and skips the rest.
func parseCitations(chunks []groundingChunk) []Citation {
	out := make([]Citation, 0, len(chunks))
	for _, ch := range chunks {
		switch {
		case ch.Web != nil:
			out = append(out, Citation{Kind: CitationWeb, URI: ch.Web.URI, Title: ch.Web.Title})
		case ch.Maps != nil:
			out = append(out, Citation{
				Kind:    CitationMaps,
				URI:     ch.Maps.URI,
				Title:   ch.Maps.Title,
				Reviews: parseReviews(ch.Maps.PlaceAnswerSources),
			})
		}
	}
	return out
}

// parseReviews accepts placeAnswerSources as a single object or as a list.
func parseReviews(raw json.RawMessage) []ReviewSnippet {
	if len(raw) == 0 {
		return nil
	}

	var sources []placeAnswerSources
	var one placeAnswerSources
	if err := json.Unmarshal(raw, &one); err == nil {
		sources = []placeAnswerSources{one}
	} else if err := json.Unmarshal(raw, &sources); err != nil {
		return nil
	}

	var reviews []ReviewSnippet
	for _, src := range sources {
		for _, s := range src.ReviewSnippets {
			uri := s.URI
			if uri == "" {
				uri = s.GoogleMapsURI
			}
			text := s.ReviewText
			if text == "" {
				text = s.Title
			}
			if uri == "" && text == "" {
				continue
			}
			reviews = append(reviews, ReviewSnippet{URI: uri, Text: text})
		}
	}
	return reviews
}
