// Package patterns aggregates across the whole decision journal. Every scan
// streams the store once with running counters; nothing here mutates state,
// so scans are safe to run alongside single-decision mutations and can be
// cancelled without side effects.
package patterns

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"decisionline/internal/domain"
	"decisionline/internal/store"
)

type Analyzer struct {
	Store store.Store
}

// TypeStats summarizes completed decisions of one type. SuccessRate is nil
// when no decision of the type has a recorded outcome ("no data").
type TypeStats struct {
	Type        domain.DecisionType `json:"type"`
	Completed   int                 `json:"completed"`
	Succeeded   int                 `json:"succeeded"`
	SuccessRate *float64            `json:"success_rate,omitempty"`
}

// DimensionMeans holds per-dimension score means across all scored
// decisions, completed or not.
type DimensionMeans struct {
	Scored    int                `json:"scored"`
	Means     map[string]float64 `json:"means"`
	Weakest   string             `json:"weakest,omitempty"`
	Strongest string             `json:"strongest,omitempty"`
}

// LessonFragment is a recurring fragment of lessons-learned text with up to
// three example decision ids.
type LessonFragment struct {
	Fragment string   `json:"fragment"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// Report is the aggregate view over the journal.
type Report struct {
	Decisions  int              `json:"decisions"`
	Completed  int              `json:"completed"`
	Types      []TypeStats      `json:"types"`
	Dimensions DimensionMeans   `json:"dimensions"`
	Grades     map[string]int   `json:"grades"`
	Lessons    []LessonFragment `json:"lessons"`
}

// SuccessRate returns the share of completed decisions of the given type
// whose outcome was exceeded or met. ok is false when the type has no
// completed decisions, not a division error.
func (a Analyzer) SuccessRate(ctx context.Context, typ domain.DecisionType) (rate float64, ok bool, err error) {
	completed, succeeded := 0, 0
	err = a.Store.ForEachDecision(ctx, func(rec store.DecisionRecord) error {
		if rec.Outcome == nil || rec.Decision.Type != typ {
			return nil
		}
		completed++
		if rec.Outcome.SuccessLevel.Succeeded() {
			succeeded++
		}
		return nil
	})
	if err != nil || completed == 0 {
		return 0, false, err
	}
	return float64(succeeded) / float64(completed), true, nil
}

// DimensionMeans averages each rubric dimension across all scored decisions
// and identifies the single weakest and strongest dimension by mean. Ties
// resolve to the first dimension in reporting order.
func (a Analyzer) DimensionMeans(ctx context.Context) (DimensionMeans, error) {
	sums := map[string]int{}
	scored := 0
	err := a.Store.ForEachDecision(ctx, func(rec store.DecisionRecord) error {
		if rec.Quality.ComputedAt == "" {
			return nil
		}
		scored++
		for name, v := range rec.Quality.Dimensions() {
			sums[name] += v
		}
		return nil
	})
	if err != nil {
		return DimensionMeans{}, err
	}
	return finishMeans(sums, scored), nil
}

func finishMeans(sums map[string]int, scored int) DimensionMeans {
	dm := DimensionMeans{Scored: scored, Means: map[string]float64{}}
	if scored == 0 {
		return dm
	}
	for _, name := range domain.DimensionNames {
		dm.Means[name] = float64(sums[name]) / float64(scored)
	}
	dm.Weakest = domain.DimensionNames[0]
	dm.Strongest = domain.DimensionNames[0]
	for _, name := range domain.DimensionNames[1:] {
		if dm.Means[name] < dm.Means[dm.Weakest] {
			dm.Weakest = name
		}
		if dm.Means[name] > dm.Means[dm.Strongest] {
			dm.Strongest = name
		}
	}
	return dm
}

// RecurringLessons counts token and adjacent-pair frequency across all
// lessons-learned text. Plain frequency, no semantic model.
func (a Analyzer) RecurringLessons(ctx context.Context, topN int) ([]LessonFragment, error) {
	counter := newLessonCounter()
	err := a.Store.ForEachDecision(ctx, func(rec store.DecisionRecord) error {
		if rec.Outcome == nil {
			return nil
		}
		counter.add(rec.Decision.ID, rec.Outcome.LessonsLearned)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counter.top(topN), nil
}

// Report produces the full aggregate view in one streaming pass.
func (a Analyzer) Report(ctx context.Context, topLessons int) (Report, error) {
	r := Report{Grades: map[string]int{}}
	perType := map[domain.DecisionType]*TypeStats{}
	sums := map[string]int{}
	scored := 0
	counter := newLessonCounter()

	err := a.Store.ForEachDecision(ctx, func(rec store.DecisionRecord) error {
		r.Decisions++
		if rec.Quality.ComputedAt != "" {
			scored++
			for name, v := range rec.Quality.Dimensions() {
				sums[name] += v
			}
			r.Grades[domain.Grade(rec.Quality.Total)]++
		}
		if rec.Outcome == nil {
			return nil
		}
		r.Completed++
		ts := perType[rec.Decision.Type]
		if ts == nil {
			ts = &TypeStats{Type: rec.Decision.Type}
			perType[rec.Decision.Type] = ts
		}
		ts.Completed++
		if rec.Outcome.SuccessLevel.Succeeded() {
			ts.Succeeded++
		}
		counter.add(rec.Decision.ID, rec.Outcome.LessonsLearned)
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	for _, typ := range domain.Types {
		ts := perType[typ]
		if ts == nil {
			continue
		}
		rate := float64(ts.Succeeded) / float64(ts.Completed)
		ts.SuccessRate = &rate
		r.Types = append(r.Types, *ts)
	}
	r.Dimensions = finishMeans(sums, scored)
	r.Lessons = counter.top(topLessons)
	return r, nil
}

// --- lesson tokenization ---

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "with": true,
	"was": true, "were": true, "be": true, "been": true, "is": true, "are": true,
	"it": true, "that": true, "this": true, "not": true, "at": true, "by": true,
	"from": true, "as": true, "we": true, "our": true, "have": true, "had": true,
	"has": true,
}

type lessonCounter struct {
	counts   map[string]int
	examples map[string][]string
}

func newLessonCounter() *lessonCounter {
	return &lessonCounter{counts: map[string]int{}, examples: map[string][]string{}}
}

func (c *lessonCounter) add(decisionID, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		if keepToken(tok) {
			c.bump(tok, decisionID)
		}
		if i+1 < len(tokens) && keepToken(tok) && keepToken(tokens[i+1]) {
			c.bump(tok+" "+tokens[i+1], decisionID)
		}
	}
}

func keepToken(tok string) bool {
	if stopwords[tok] {
		return false
	}
	if len(tok) >= 3 {
		return true
	}
	// short tokens survive only when numeric ("2 weeks")
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func (c *lessonCounter) bump(fragment, decisionID string) {
	c.counts[fragment]++
	ex := c.examples[fragment]
	for _, id := range ex {
		if id == decisionID {
			return
		}
	}
	if len(ex) < 3 {
		c.examples[fragment] = append(ex, decisionID)
	}
}

func (c *lessonCounter) top(n int) []LessonFragment {
	if n <= 0 {
		n = 10
	}
	out := make([]LessonFragment, 0, len(c.counts))
	for fragment, count := range c.counts {
		out = append(out, LessonFragment{Fragment: fragment, Count: count, Examples: c.examples[fragment]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Fragment < out[j].Fragment
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
