// Package classify maps free decision text onto one of the eight canonical
// decision templates. The keyword heuristic is deliberately simple; the
// Classifier interface lets a different strategy replace it without touching
// the lifecycle engine or the scorer.
package classify

import (
	"strings"
	"unicode"

	"decisionline/internal/domain"
)

// Classifier resolves free text to a decision type. The boolean reports
// whether a keyword set matched; false means the strategic fallback applied.
type Classifier interface {
	Classify(text string) (domain.DecisionType, bool)
}

// keyword sets scanned in fixed priority order; first match wins.
var defaultKeywords = map[domain.DecisionType][]string{
	domain.TypeHire:         {"hire", "hiring", "candidate", "recruit", "headcount", "interview"},
	domain.TypeVendor:       {"vendor", "tool", "platform", "service", "supplier", "license"},
	domain.TypeArchitecture: {"architecture", "technical", "design", "refactor", "stack"},
	domain.TypeResource:     {"budget", "resource", "allocation", "capacity", "funding"},
	domain.TypeProcess:      {"process", "workflow", "procedure", "checklist"},
	domain.TypeIncident:     {"incident", "emergency", "urgent", "outage", "breach"},
	domain.TypeInvestment:   {"invest", "commitment", "initiative", "venture"},
}

// Keyword is the default deterministic classifier. Identical input always
// yields identical output.
type Keyword struct {
	keywords map[domain.DecisionType][]string
}

// NewKeyword builds the classifier, merging optional extra keywords per type
// (from config) after the built-in sets.
func NewKeyword(extra map[domain.DecisionType][]string) Keyword {
	kw := make(map[domain.DecisionType][]string, len(defaultKeywords))
	for t, words := range defaultKeywords {
		merged := append([]string(nil), words...)
		for _, w := range extra[t] {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				merged = append(merged, w)
			}
		}
		kw[t] = merged
	}
	return Keyword{keywords: kw}
}

// Classify scans the text for type keywords in priority order. No match
// falls back to strategic.
func (k Keyword) Classify(text string) (domain.DecisionType, bool) {
	tokens := tokenize(text)
	for _, t := range domain.Types {
		for _, word := range k.keywords[t] {
			if tokens[word] || hasPrefixToken(tokens, word) {
				return t, true
			}
		}
	}
	return domain.TypeStrategic, false
}

func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[tok] = true
	}
	return tokens
}

// hasPrefixToken matches inflected forms: "invest" covers "investment",
// "hire" covers "hired".
func hasPrefixToken(tokens map[string]bool, word string) bool {
	for tok := range tokens {
		if strings.HasPrefix(tok, word) {
			return true
		}
	}
	return false
}
