// Package quality implements the fixed six-dimension decision scoring rubric.
// Score is a pure function of one decision's current state; missing or
// not-yet-applicable data contributes zero rather than failing, so a score is
// always computable.
package quality

import (
	"regexp"
	"strings"
	"time"

	"decisionline/internal/domain"
)

// Timeframe markers for Frame scoring: an explicit date, a quarter reference
// or the words "by"/"within".
var (
	timeframeWords = regexp.MustCompile(`(?i)\b(by|within)\b`)
	datePattern    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}(/\d{2,4})?\b|(?i)\bq[1-4]\b`)
)

// Score recomputes the rubric for one decision. outcome is nil until the
// decision reaches OutcomeRecorded.
func Score(d domain.Decision, opts []domain.DecisionOption, outcome *domain.DecisionOutcome, computedAt time.Time) domain.DecisionQuality {
	q := domain.DecisionQuality{
		DecisionID:   d.ID,
		Frame:        frame(d),
		Alternatives: alternatives(opts),
		Information:  information(opts),
		Values:       values(d),
		Reasoning:    reasoning(d, opts),
		Commitment:   commitment(d, outcome),
		ComputedAt:   computedAt.UTC().Format(time.RFC3339),
	}
	q.Total = q.Frame + q.Alternatives + q.Information + q.Values + q.Reasoning + q.Commitment
	return q
}

func frame(d domain.Decision) int {
	score := 0
	if len(strings.Fields(d.ProblemStatement)) >= 20 {
		score += 3
	}
	if len(d.Stakeholders) > 0 {
		score += 3
	}
	text := d.ProblemStatement + " " + d.ValuesStatement
	if timeframeWords.MatchString(text) || datePattern.MatchString(text) {
		score += 2
	}
	if d.TypeSource != domain.TypeSourceDefault {
		score += 2
	}
	return cap10(score)
}

func alternatives(opts []domain.DecisionOption) int {
	score := 0
	for _, o := range opts {
		if o.FullyDocumented() {
			score += 2
		}
	}
	return cap10(score)
}

func information(opts []domain.DecisionOption) int {
	score := 0
	for _, o := range opts {
		if o.HasEstimate() {
			score += 2
		}
	}
	return cap10(score)
}

func values(d domain.Decision) int {
	if strings.TrimSpace(d.ValuesStatement) != "" {
		return 10
	}
	return 0
}

// reasoning scores 0 before Decided. +5 when the recorded reasoning
// references the chosen option by name or by one of its pros; a further +5
// when it also names a non-chosen option (a contrastive reference).
func reasoning(d domain.Decision, opts []domain.DecisionOption) int {
	if domain.StatusRank(d.Status) < domain.StatusRank(domain.StatusDecided) {
		return 0
	}
	text := strings.ToLower(strings.TrimSpace(d.Reasoning))
	if text == "" || d.ChosenOptionID == nil {
		return 0
	}
	var chosen *domain.DecisionOption
	for i := range opts {
		if opts[i].ID == *d.ChosenOptionID {
			chosen = &opts[i]
			break
		}
	}
	if chosen == nil {
		return 0
	}
	referenced := mentions(text, chosen.Name)
	for _, pro := range chosen.Pros {
		if referenced {
			break
		}
		referenced = mentions(text, pro)
	}
	if !referenced {
		return 0
	}
	score := 5
	for _, o := range opts {
		if o.ID == chosen.ID {
			continue
		}
		if mentions(text, o.Name) {
			score += 5
			break
		}
	}
	return cap10(score)
}

func mentions(text, fragment string) bool {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return false
	}
	return strings.Contains(text, fragment)
}

// commitment is monotonic along a decision's lifecycle: 0 with no review
// date, 3 once a review date is set on a decided decision, 10 once the
// outcome is recorded.
func commitment(d domain.Decision, outcome *domain.DecisionOutcome) int {
	if outcome != nil {
		return 10
	}
	if d.ReviewDate != nil && *d.ReviewDate != "" && domain.StatusRank(d.Status) >= domain.StatusRank(domain.StatusDecided) {
		return 3
	}
	return 0
}

func cap10(v int) int {
	if v > 10 {
		return 10
	}
	return v
}
