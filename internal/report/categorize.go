package report

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Categorize picks a category from keywords in the description. Matching
// ignores case and diacritics. Categories are tried in display order, which is
// also their urgency; within one, whole words win over substrings. It returns
// nil when nothing matches.
func Categorize(description string) *Suggestion {
	text := fold(description)
	if text == "" {
		return nil
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	for _, cat := range Categories {
		for _, w := range words {
			if wordMatch[w] == cat {
				return keywordSuggestion(cat, w)
			}
		}
		for _, entry := range substringMatches {
			if entry.category == cat && strings.Contains(text, entry.keyword) {
				return keywordSuggestion(cat, entry.keyword)
			}
		}
	}

	return nil
}

func keywordSuggestion(c Category, keyword string) *Suggestion {
	return &Suggestion{
		Category: c,
		Reason:   fmt.Sprintf("Opis sadrži izraz \"%s\".", keyword),
	}
}

var folder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		return r
	}),
	norm.NFC,
)

// fold lowercases s and strips diacritics, so "Požar" and "pozar" compare equal.
func fold(s string) string {
	out, _, err := transform.String(folder, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

var wordMatch = map[string]Category{
	// Emergency
	"pozar":     CategoryEmergency,
	"vatra":     CategoryEmergency,
	"gori":      CategoryEmergency,
	"dim":       CategoryEmergency,
	"krv":       CategoryEmergency,
	"ozljeda":   CategoryEmergency,
	"ozlijeden": CategoryEmergency,
	"nesreca":   CategoryEmergency,
	"hitno":     CategoryEmergency,
	"opasno":    CategoryEmergency,
	"nasilje":   CategoryEmergency,
	"tucnjava":  CategoryEmergency,
	"plin":      CategoryEmergency,

	// Technical
	"projektor": CategoryTechnical,
	"racunalo":  CategoryTechnical,
	"printer":   CategoryTechnical,
	"pisac":     CategoryTechnical,
	"wifi":      CategoryTechnical,
	"wi-fi":     CategoryTechnical,
	"internet":  CategoryTechnical,
	"kvar":      CategoryTechnical,
	"klupa":     CategoryTechnical,
	"stolica":   CategoryTechnical,
	"wc":        CategoryTechnical,
	"zahod":     CategoryTechnical,

	// Improvement
	"prijedlog": CategoryImprovement,
	"ideja":     CategoryImprovement,

	// General
	"pitanje": CategoryGeneral,
	"upit":    CategoryGeneral,
}

type substringEntry struct {
	keyword  string
	category Category
}

var substringMatches = []substringEntry{
	// Emergency
	{"ne mogu disati", CategoryEmergency},
	{"prva pomoc", CategoryEmergency},
	{"hitn", CategoryEmergency},
	{"pozar", CategoryEmergency},
	{"ozljed", CategoryEmergency},
	{"ozlijed", CategoryEmergency},
	{"krvar", CategoryEmergency},
	{"opasn", CategoryEmergency},
	{"prijet", CategoryEmergency},
	{"nasil", CategoryEmergency},
	{"sigurnos", CategoryEmergency},
	{"struja udar", CategoryEmergency},

	// Technical
	{"ne radi", CategoryTechnical},
	{"ne rade", CategoryTechnical},
	{"pokvar", CategoryTechnical},
	{"slomlj", CategoryTechnical},
	{"razbij", CategoryTechnical},
	{"racunal", CategoryTechnical},
	{"projektor", CategoryTechnical},
	{"mrez", CategoryTechnical},
	{"svjetl", CategoryTechnical},
	{"grijanj", CategoryTechnical},
	{"klima", CategoryTechnical},
	{"slavin", CategoryTechnical},
	{"curi", CategoryTechnical},
	{"prozor", CategoryTechnical},
	{"vrata", CategoryTechnical},
	{"klup", CategoryTechnical},

	// Improvement
	{"bilo bi dobro", CategoryImprovement},
	{"trebali bismo", CategoryImprovement},
	{"predlaz", CategoryImprovement},
	{"prijedlo", CategoryImprovement},
	{"poboljs", CategoryImprovement},
	{"unapred", CategoryImprovement},
	{"uvesti", CategoryImprovement},

	// General
	{"zanima me", CategoryGeneral},
	{"informacij", CategoryGeneral},
	{"pitanj", CategoryGeneral},
	{"raspored", CategoryGeneral},
}
