package content

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dukerupert/prometna/internal/ai"
	"github.com/dukerupert/prometna/internal/model"
)

const (
	SchoolSite = "ss-tehnicka-prometna-st.skole.hr"

	NoAnswerText        = "Nisam uspio pronaći odgovor. Pokušajte ponovno."
	LocationUnavailable = "Nije moguće dohvatiti lokaciju."
	NearbyQuery         = "Pronađi kafiće ili pekare u blizini moje lokacije."
)

var (
	ErrEmptyQuery      = errors.New("query is empty")
	ErrInvalidLocation = errors.New("location is out of range")
)

// Contact is the school's contact card.
var Contact = model.ContactInfo{
	Name:    "Srednja tehnička prometna škola Split",
	About:   "Srednja tehnička prometna škola Split obrazuje učenike u području prometa i logistike. Naša misija je pružiti kvalitetno obrazovanje koje priprema učenike za tržište rada i daljnje školovanje.",
	Address: "Zrinsko-frankopanska ul. 2, 21000, Split",
	Phone:   "021 380 733",
	Email:   "info@ss-tehnicka-prometna-st.skole.hr",
	Web:     "https://ss-tehnicka-prometna-st.skole.hr/",
}

// Grounder answers questions from a retrieval tool.
type Grounder interface {
	Grounded(ctx context.Context, query string, t ai.Tool) (ai.GroundedAnswer, error)
}

// Service answers the AI-backed content screens.
type Service struct {
	grounder Grounder
	logger   *slog.Logger
}

func NewService(g Grounder, logger *slog.Logger) *Service {
	return &Service{grounder: g, logger: logger}
}

// SearchNews answers query from the school website. Remote failures yield
// NoAnswerText with no sources.
func (s *Service) SearchNews(ctx context.Context, query string) (ai.GroundedAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ai.GroundedAnswer{}, ErrEmptyQuery
	}

	answer, err := s.grounder.Grounded(ctx, query, ai.SearchTool{Site: SchoolSite})
	if err != nil {
		s.logger.Warn("news search failed", "error", err)
		return noAnswer(), nil
	}
	return answer, nil
}

// Nearby suggests cafés and bakeries around loc. Only map sources are kept.
func (s *Service) Nearby(ctx context.Context, loc ai.LatLng) (ai.GroundedAnswer, error) {
	if !loc.Valid() {
		return ai.GroundedAnswer{}, ErrInvalidLocation
	}

	answer, err := s.grounder.Grounded(ctx, NearbyQuery, ai.MapsTool{LatLng: &loc})
	if err != nil {
		s.logger.Warn("nearby search failed", "error", err)
		return noAnswer(), nil
	}

	places := make([]ai.Citation, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		if c.Kind == ai.CitationMaps {
			places = append(places, c)
		}
	}
	answer.Citations = places
	return answer, nil
}

func noAnswer() ai.GroundedAnswer {
	return ai.GroundedAnswer{Text: NoAnswerText, Citations: []ai.Citation{}}
}
