package quality

import (
	"strings"
	"testing"
	"time"

	"decisionline/internal/domain"
)

var at = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func baseDecision() domain.Decision {
	return domain.Decision{
		ID:         "d1",
		Type:       domain.TypeStrategic,
		TypeSource: domain.TypeSourceDefault,
		Status:     domain.StatusDraft,
	}
}

func TestFrameCriteria(t *testing.T) {
	d := baseDecision()
	if got := Score(d, nil, nil, at).Frame; got != 0 {
		t.Fatalf("empty frame = %d, want 0", got)
	}

	d.ProblemStatement = strings.Repeat("word ", 20)
	if got := Score(d, nil, nil, at).Frame; got != 3 {
		t.Fatalf("long problem frame = %d, want 3", got)
	}

	d.Stakeholders = []string{"infra"}
	if got := Score(d, nil, nil, at).Frame; got != 6 {
		t.Fatalf("with stakeholders frame = %d, want 6", got)
	}

	d.ValuesStatement = "decide by 2024-06-30"
	if got := Score(d, nil, nil, at).Frame; got != 8 {
		t.Fatalf("with timeframe frame = %d, want 8", got)
	}

	d.TypeSource = domain.TypeSourceExplicit
	if got := Score(d, nil, nil, at).Frame; got != 10 {
		t.Fatalf("full frame = %d, want 10", got)
	}
}

func TestTimeframeMarkers(t *testing.T) {
	cases := map[string]bool{
		"ship within two sprints": true,
		"done by friday":          true,
		"target Q3":               true,
		"target 2025-01-15":       true,
		"deadline 3/15":           true,
		"sometime eventually":     false,
	}
	for text, want := range cases {
		d := baseDecision()
		d.ProblemStatement = text
		got := Score(d, nil, nil, at).Frame == 2
		if got != want {
			t.Errorf("timeframe %q = %v, want %v", text, got, want)
		}
	}
}

func fullyDocumented(id string) domain.DecisionOption {
	return domain.DecisionOption{
		ID:    id,
		Name:  "opt-" + id,
		Pros:  []string{"p1", "p2"},
		Cons:  []string{"c1", "c2"},
		Risks: []string{"r1"},
	}
}

func TestAlternativesCapsAtTen(t *testing.T) {
	var opts []domain.DecisionOption
	for i := 0; i < 7; i++ {
		opts = append(opts, fullyDocumented(string(rune('a'+i))))
	}
	q := Score(baseDecision(), opts, nil, at)
	if q.Alternatives != 10 {
		t.Fatalf("alternatives = %d, want capped 10", q.Alternatives)
	}

	// a thin option contributes nothing
	thin := []domain.DecisionOption{{ID: "x", Name: "thin", Pros: []string{"one"}}}
	if got := Score(baseDecision(), thin, nil, at).Alternatives; got != 0 {
		t.Fatalf("thin option alternatives = %d, want 0", got)
	}
}

func TestInformationCountsEstimates(t *testing.T) {
	opts := []domain.DecisionOption{
		{ID: "a", Name: "a", EstimateEffort: "2w"},
		{ID: "b", Name: "b", EstimateCost: "10k"},
		{ID: "c", Name: "c"},
	}
	if got := Score(baseDecision(), opts, nil, at).Information; got != 4 {
		t.Fatalf("information = %d, want 4", got)
	}
}

func TestValuesIsBinary(t *testing.T) {
	d := baseDecision()
	if got := Score(d, nil, nil, at).Values; got != 0 {
		t.Fatalf("values = %d, want 0", got)
	}
	d.ValuesStatement = "   "
	if got := Score(d, nil, nil, at).Values; got != 0 {
		t.Fatalf("blank values = %d, want 0", got)
	}
	d.ValuesStatement = "optimize for team autonomy"
	if got := Score(d, nil, nil, at).Values; got != 10 {
		t.Fatalf("values = %d, want 10", got)
	}
}

func TestReasoningNeedsChosenReference(t *testing.T) {
	chosenID := "a"
	opts := []domain.DecisionOption{
		{ID: "a", Name: "Buy", Pros: []string{"faster onboarding"}},
		{ID: "b", Name: "Build"},
	}
	d := baseDecision()
	d.Status = domain.StatusDecided
	d.ChosenOptionID = &chosenID

	d.Reasoning = "felt right"
	if got := Score(d, opts, nil, at).Reasoning; got != 0 {
		t.Fatalf("vague reasoning = %d, want 0", got)
	}

	// referencing only the non-chosen option earns nothing
	d.Reasoning = "build would take too long"
	if got := Score(d, opts, nil, at).Reasoning; got != 0 {
		t.Fatalf("contrast-only reasoning = %d, want 0", got)
	}

	d.Reasoning = "buy wins on cost"
	if got := Score(d, opts, nil, at).Reasoning; got != 5 {
		t.Fatalf("chosen-name reasoning = %d, want 5", got)
	}

	d.Reasoning = "faster onboarding matters most this quarter"
	if got := Score(d, opts, nil, at).Reasoning; got != 5 {
		t.Fatalf("chosen-pro reasoning = %d, want 5", got)
	}

	d.Reasoning = "buy wins on cost and Build would take two quarters"
	if got := Score(d, opts, nil, at).Reasoning; got != 10 {
		t.Fatalf("contrastive reasoning = %d, want 10", got)
	}

	// reasoning never scores before the decision is made
	d.Status = domain.StatusOptionsCaptured
	if got := Score(d, opts, nil, at).Reasoning; got != 0 {
		t.Fatalf("pre-decision reasoning = %d, want 0", got)
	}
}

func TestCommitmentMonotonic(t *testing.T) {
	review := "2024-06-01"
	d := baseDecision()
	if got := Score(d, nil, nil, at).Commitment; got != 0 {
		t.Fatalf("draft commitment = %d, want 0", got)
	}

	// a review date alone is not commitment until the decision is made
	d.ReviewDate = &review
	d.Status = domain.StatusOptionsCaptured
	if got := Score(d, nil, nil, at).Commitment; got != 0 {
		t.Fatalf("undecided commitment = %d, want 0", got)
	}

	d.Status = domain.StatusDecided
	if got := Score(d, nil, nil, at).Commitment; got != 3 {
		t.Fatalf("scheduled commitment = %d, want 3", got)
	}

	d.Status = domain.StatusOutcomeRecorded
	out := &domain.DecisionOutcome{DecisionID: "d1", ActualOutcome: "done", SuccessLevel: domain.SuccessMet}
	if got := Score(d, nil, out, at).Commitment; got != 10 {
		t.Fatalf("recorded commitment = %d, want 10", got)
	}
}
