package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"decisionline/internal/db"
	"decisionline/internal/domain"
	"decisionline/internal/migrate"
	"decisionline/internal/store"
)

func newStore(t *testing.T) (store.Store, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.Store{DB: conn}, conn
}

func insertDecision(t *testing.T, s store.Store, conn *sql.DB, d domain.Decision) {
	t.Helper()
	ctx := context.Background()
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	if err := s.InsertDecision(ctx, tx, d); err != nil {
		t.Fatalf("insert decision %s: %v", d.ID, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func decisionFixture(id, createdAt string) domain.Decision {
	return domain.Decision{
		ID:               id,
		Type:             domain.TypeVendor,
		TypeSource:       domain.TypeSourceDefault,
		Title:            "decision " + id,
		ProblemStatement: "problem " + id,
		Status:           domain.StatusDraft,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

func TestGetDecisionNotFound(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.GetDecision(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDecisionsCursor(t *testing.T) {
	s, conn := newStore(t)
	ctx := context.Background()
	// same timestamp on purpose, ordering must fall back to id
	ts := "2024-01-01T00:00:00Z"
	for i := 1; i <= 5; i++ {
		insertDecision(t, s, conn, decisionFixture(fmt.Sprintf("d%02d", i), ts))
	}

	first, err := s.ListDecisions(ctx, store.DecisionFilters{Limit: 3})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("first page has %d rows, want 3", len(first))
	}
	last := first[len(first)-1]
	second, err := s.ListDecisions(ctx, store.DecisionFilters{
		Limit:           3,
		CursorCreatedAt: last.CreatedAt,
		CursorID:        last.ID,
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("second page has %d rows, want 2", len(second))
	}
	seen := map[string]bool{}
	for _, d := range append(first, second...) {
		if seen[d.ID] {
			t.Fatalf("id %s appears on both pages", d.ID)
		}
		seen[d.ID] = true
	}
}

func TestListDecisionsFilters(t *testing.T) {
	s, conn := newStore(t)
	ctx := context.Background()
	a := decisionFixture("a1", "2024-01-01T00:00:00Z")
	b := decisionFixture("b1", "2024-01-02T00:00:00Z")
	b.Type = domain.TypeHire
	b.Status = domain.StatusDecided
	insertDecision(t, s, conn, a)
	insertDecision(t, s, conn, b)

	hires, err := s.ListDecisions(ctx, store.DecisionFilters{Type: string(domain.TypeHire)})
	if err != nil {
		t.Fatalf("filter by type: %v", err)
	}
	if len(hires) != 1 || hires[0].ID != "b1" {
		t.Fatalf("type filter returned %+v", hires)
	}
	drafts, err := s.ListDecisions(ctx, store.DecisionFilters{Status: domain.StatusDraft})
	if err != nil {
		t.Fatalf("filter by status: %v", err)
	}
	if len(drafts) != 1 || drafts[0].ID != "a1" {
		t.Fatalf("status filter returned %+v", drafts)
	}
}

func TestSetChosenIsExclusive(t *testing.T) {
	s, conn := newStore(t)
	ctx := context.Background()
	insertDecision(t, s, conn, decisionFixture("d1", "2024-01-01T00:00:00Z"))

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	for _, id := range []string{"o1", "o2", "o3"} {
		err := s.InsertOption(ctx, tx, domain.DecisionOption{
			ID: id, DecisionID: "d1", Name: "option " + id, CreatedAt: "2024-01-01T00:00:00Z",
		})
		if err != nil {
			t.Fatalf("insert option %s: %v", id, err)
		}
	}
	if err := s.SetChosen(ctx, tx, "d1", "o2"); err != nil {
		t.Fatalf("set chosen o2: %v", err)
	}
	// moving the choice clears the old flag in the same statement
	if err := s.SetChosen(ctx, tx, "d1", "o3"); err != nil {
		t.Fatalf("set chosen o3: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	opts, err := s.ListOptions(ctx, "d1")
	if err != nil {
		t.Fatalf("list options: %v", err)
	}
	var chosen []string
	for _, o := range opts {
		if o.Chosen {
			chosen = append(chosen, o.ID)
		}
	}
	if len(chosen) != 1 || chosen[0] != "o3" {
		t.Fatalf("chosen = %v, want [o3]", chosen)
	}
}

func TestSetChosenUnknownDecision(t *testing.T) {
	s, conn := newStore(t)
	ctx := context.Background()
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	if err := s.SetChosen(ctx, tx, "ghost", "o1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertQualityOverwrites(t *testing.T) {
	s, conn := newStore(t)
	ctx := context.Background()
	insertDecision(t, s, conn, decisionFixture("d1", "2024-01-01T00:00:00Z"))

	write := func(frame, total int) {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin tx: %v", err)
		}
		defer tx.Rollback()
		err = s.UpsertQuality(ctx, tx, domain.DecisionQuality{
			DecisionID: "d1", Frame: frame, Total: total, ComputedAt: "2024-01-01T00:00:00Z",
		})
		if err != nil {
			t.Fatalf("upsert quality: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	write(3, 3)
	write(8, 8)

	q, err := s.GetQuality(ctx, "d1")
	if err != nil {
		t.Fatalf("get quality: %v", err)
	}
	if q.Frame != 8 || q.Total != 8 {
		t.Fatalf("quality = %+v, want frame/total 8", q)
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	secret := "plaintext-secret"
	key := domain.APIKey{
		ID:        "k1",
		ActorID:   "tester",
		Name:      "laptop",
		KeyHash:   store.HashAPIKey(secret),
		CreatedAt: "2024-01-01T00:00:00Z",
	}
	if err := s.InsertAPIKey(ctx, key); err != nil {
		t.Fatalf("insert api key: %v", err)
	}

	got, err := s.GetAPIKeyByHash(ctx, store.HashAPIKey(secret))
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if got.ActorID != "tester" {
		t.Fatalf("actor = %s, want tester", got.ActorID)
	}
	if _, err := s.GetAPIKeyByHash(ctx, store.HashAPIKey("wrong")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong secret, got %v", err)
	}

	keys, err := s.ListAPIKeys(ctx, "tester")
	if err != nil || len(keys) != 1 {
		t.Fatalf("list keys: %v %v", keys, err)
	}
	if err := s.DeleteAPIKey(ctx, "k1"); err != nil {
		t.Fatalf("delete key: %v", err)
	}
	if err := s.DeleteAPIKey(ctx, "k1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
