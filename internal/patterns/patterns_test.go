package patterns_test

import (
	"context"
	"testing"
	"time"

	"decisionline/internal/config"
	"decisionline/internal/db"
	"decisionline/internal/domain"
	"decisionline/internal/engine"
	"decisionline/internal/migrate"
	"decisionline/internal/patterns"
)

func newJournal(t *testing.T) engine.Engine {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("tester"))
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return eng
}

// completeDecision runs a decision through the whole lifecycle.
func completeDecision(t *testing.T, e engine.Engine, typ, title, level, lessons string) string {
	t.Helper()
	ctx := context.Background()
	d, err := e.Create(ctx, engine.CreateOptions{
		Type:             typ,
		Title:            title,
		ProblemStatement: "problem for " + title,
		Stakeholders:     []string{"team"},
		ActorID:          "tester",
	})
	if err != nil {
		t.Fatalf("create %s: %v", title, err)
	}
	opt, err := e.AddOption(ctx, d.ID, engine.OptionInput{
		Name:           "go",
		Pros:           []string{"p1", "p2"},
		Cons:           []string{"c1", "c2"},
		Risks:          []string{"r1"},
		EstimateEffort: "2w",
	}, "tester")
	if err != nil {
		t.Fatalf("option %s: %v", title, err)
	}
	if _, err := e.Choose(ctx, engine.ChooseOptions{DecisionID: d.ID, OptionID: opt.ID, Reasoning: "because", ActorID: "tester"}); err != nil {
		t.Fatalf("choose %s: %v", title, err)
	}
	if level != "" {
		_, err = e.RecordOutcome(ctx, engine.OutcomeOptions{
			DecisionID:    d.ID,
			ActualOutcome: "it happened",
			SuccessLevel:  level,
			Lessons:       lessons,
			ActorID:       "tester",
		})
		if err != nil {
			t.Fatalf("outcome %s: %v", title, err)
		}
	}
	return d.ID
}

func TestSuccessRatePerType(t *testing.T) {
	e := newJournal(t)
	ctx := context.Background()
	completeDecision(t, e, "vendor", "tool one", "met", "")
	completeDecision(t, e, "vendor", "tool two", "failed", "")
	completeDecision(t, e, "hire", "pending hire", "", "")

	a := patterns.Analyzer{Store: e.Store}
	rate, ok, err := a.SuccessRate(ctx, domain.TypeVendor)
	if err != nil || !ok {
		t.Fatalf("vendor success rate: ok=%v err=%v", ok, err)
	}
	if rate != 0.5 {
		t.Fatalf("vendor rate = %v, want 0.5", rate)
	}

	// the hire decision has no outcome, so there is no data, not a zero rate
	if _, ok, err := a.SuccessRate(ctx, domain.TypeHire); err != nil || ok {
		t.Fatalf("hire rate should report no data, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := a.SuccessRate(ctx, domain.TypeIncident); ok {
		t.Fatalf("incident rate should report no data")
	}
}

func TestDimensionMeansFindsWeakest(t *testing.T) {
	e := newJournal(t)
	ctx := context.Background()
	completeDecision(t, e, "vendor", "one", "met", "")
	completeDecision(t, e, "process", "two", "exceeded", "")

	dm, err := patterns.Analyzer{Store: e.Store}.DimensionMeans(ctx)
	if err != nil {
		t.Fatalf("dimension means: %v", err)
	}
	if dm.Scored != 2 {
		t.Fatalf("scored = %d, want 2", dm.Scored)
	}
	if len(dm.Means) != len(domain.DimensionNames) {
		t.Fatalf("means has %d entries, want %d", len(dm.Means), len(domain.DimensionNames))
	}
	// no decision carries a values statement
	if dm.Weakest != "values" {
		t.Fatalf("weakest = %s, want values", dm.Weakest)
	}
	if dm.Strongest != "commitment" {
		t.Fatalf("strongest = %s, want commitment", dm.Strongest)
	}
}

func TestRecurringLessons(t *testing.T) {
	e := newJournal(t)
	ctx := context.Background()
	id1 := completeDecision(t, e, "vendor", "one", "failed", "should have piloted for 2 weeks")
	id2 := completeDecision(t, e, "process", "two", "missed", "should have piloted with real traffic")
	completeDecision(t, e, "hire", "three", "met", "clear scorecard helped")

	lessons, err := patterns.Analyzer{Store: e.Store}.RecurringLessons(ctx, 5)
	if err != nil {
		t.Fatalf("recurring lessons: %v", err)
	}
	if len(lessons) == 0 {
		t.Fatal("expected lesson fragments")
	}
	top := lessons[0]
	if top.Count < 2 {
		t.Fatalf("top fragment %q count = %d, want >= 2", top.Fragment, top.Count)
	}
	byFragment := map[string]patterns.LessonFragment{}
	for i, l := range lessons {
		if i > 0 && l.Count > lessons[i-1].Count {
			t.Fatalf("lessons not sorted by count: %v", lessons)
		}
		byFragment[l.Fragment] = l
	}
	pil, ok := byFragment["piloted"]
	if !ok || pil.Count != 2 {
		t.Fatalf("expected 'piloted' twice, got %+v", pil)
	}
	if len(pil.Examples) != 2 {
		t.Fatalf("expected two example ids, got %v", pil.Examples)
	}
	seen := map[string]bool{}
	for _, id := range pil.Examples {
		seen[id] = true
	}
	if !seen[id1] || !seen[id2] {
		t.Fatalf("examples %v missing %s or %s", pil.Examples, id1, id2)
	}
}

func TestReportAggregates(t *testing.T) {
	e := newJournal(t)
	ctx := context.Background()
	completeDecision(t, e, "vendor", "one", "met", "keep contracts short")
	completeDecision(t, e, "vendor", "two", "", "")

	report, err := patterns.Analyzer{Store: e.Store}.Report(ctx, 3)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Decisions != 2 || report.Completed != 1 {
		t.Fatalf("decisions/completed = %d/%d, want 2/1", report.Decisions, report.Completed)
	}
	if len(report.Types) != 1 || report.Types[0].Type != domain.TypeVendor {
		t.Fatalf("types = %+v, want single vendor entry", report.Types)
	}
	ts := report.Types[0]
	if ts.Completed != 1 || ts.Succeeded != 1 || ts.SuccessRate == nil || *ts.SuccessRate != 1 {
		t.Fatalf("vendor stats = %+v", ts)
	}
	total := 0
	for _, n := range report.Grades {
		total += n
	}
	if total != 2 {
		t.Fatalf("grade distribution covers %d decisions, want 2", total)
	}
}

func TestScanHonorsCancellation(t *testing.T) {
	e := newJournal(t)
	completeDecision(t, e, "vendor", "one", "met", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (patterns.Analyzer{Store: e.Store}).Report(ctx, 3); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
