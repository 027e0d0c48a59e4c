package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/prometna/internal/ai"
	"github.com/dukerupert/prometna/internal/content"
	"github.com/dukerupert/prometna/internal/model"
	"github.com/dukerupert/prometna/internal/store"
)

type stubGrounder struct {
	answer ai.GroundedAnswer
	err    error
	calls  int
}

func (g *stubGrounder) Grounded(ctx context.Context, query string, t ai.Tool) (ai.GroundedAnswer, error) {
	g.calls++
	return g.answer, g.err
}

func newContentHandler(t *testing.T, g *stubGrounder) *ContentHandler {
	t.Helper()
	return NewContentHandler(store.NewContentStore(setupDB(t)), content.NewService(g, discard), discard)
}

func TestContentCalendar(t *testing.T) {
	h := newContentHandler(t, &stubGrounder{})

	req := httptest.NewRequest(http.MethodGet, "/api/content/calendar", nil)
	rec := serve("GET /api/content/calendar", h.Calendar, req, testDevice)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var events []struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	}
	decodeBody(t, rec, &events)
	if len(events) != 5 {
		t.Fatalf("len = %d, want 5", len(events))
	}
	if events[0].Date != "21.06." {
		t.Errorf("first date = %q", events[0].Date)
	}
}

func TestContentDocumentsAndContact(t *testing.T) {
	h := newContentHandler(t, &stubGrounder{})

	req := httptest.NewRequest(http.MethodGet, "/api/content/documents", nil)
	rec := serve("GET /api/content/documents", h.Documents, req, testDevice)
	var docs []model.Document
	decodeBody(t, rec, &docs)
	if len(docs) != 6 {
		t.Errorf("documents = %d, want 6", len(docs))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/content/contact", nil)
	rec = serve("GET /api/content/contact", h.Contact, req, testDevice)
	var contact model.ContactInfo
	decodeBody(t, rec, &contact)
	if contact.Phone != "021 380 733" {
		t.Errorf("contact = %+v", contact)
	}
}

func TestContentNewsSearch(t *testing.T) {
	g := &stubGrounder{err: errors.New("unavailable")}
	h := newContentHandler(t, g)

	req := httptest.NewRequest(http.MethodPost, "/api/content/news/search", strings.NewReader(`{"query":"Kada su upisi?"}`))
	rec := serve("POST /api/content/news/search", h.SearchNews, req, testDevice)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var answer ai.GroundedAnswer
	decodeBody(t, rec, &answer)
	if answer.Text != content.NoAnswerText || len(answer.Citations) != 0 {
		t.Errorf("answer = %+v", answer)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/content/news/search", strings.NewReader(`{"query":" "}`))
	if rec := serve("POST /api/content/news/search", h.SearchNews, req, testDevice); rec.Code != http.StatusBadRequest {
		t.Errorf("blank query status = %d", rec.Code)
	}
}

func TestContentNearby(t *testing.T) {
	g := &stubGrounder{answer: ai.GroundedAnswer{
		Text:      "Pekara je iza ugla.",
		Citations: []ai.Citation{{Kind: ai.CitationMaps, Title: "Pekara"}},
	}}
	h := newContentHandler(t, g)

	tests := []struct {
		query string
		want  int
	}{
		{"?lat=43.5081&lng=16.4402", http.StatusOK},
		{"?lat=95&lng=16.4", http.StatusUnprocessableEntity},
		{"?lat=abc&lng=16.4", http.StatusUnprocessableEntity},
		{"", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/content/nearby"+tt.query, nil)
		rec := serve("GET /api/content/nearby", h.Nearby, req, testDevice)
		if rec.Code != tt.want {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.want)
		}
	}
	if g.calls != 1 {
		t.Errorf("grounder calls = %d, want 1", g.calls)
	}
}
