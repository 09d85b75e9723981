package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"decisionline/internal/classify"
	"decisionline/internal/config"
	"decisionline/internal/domain"
	"decisionline/internal/events"
	"decisionline/internal/quality"
	"decisionline/internal/store"
)

// Engine drives the decision lifecycle: draft -> options_captured -> decided
// -> outcome_recorded, strictly forward. Every mutation runs in a single
// transaction that also recomputes the decision's quality score, so callers
// always observe a consistent record or no change at all.
type Engine struct {
	DB         *sql.DB
	Store      store.Store
	Events     events.Writer
	Config     *config.Config
	Classifier classify.Classifier
	Now        func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default("local-user")
	}
	return Engine{
		DB:         db,
		Store:      store.Store{DB: db},
		Events:     events.Writer{DB: db},
		Config:     cfg,
		Classifier: classify.NewKeyword(cfg.ExtraKeywords()),
		Now:        time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CreateOptions are parameters for creating a decision.
type CreateOptions struct {
	Type             string
	Title            string
	ProblemStatement string
	Stakeholders     []string
	ValuesStatement  string
	ActorID          string
}

// Create writes a new decision at draft. When no type is supplied the
// template resolver classifies title + problem text.
func (e Engine) Create(ctx context.Context, opts CreateOptions) (domain.Decision, error) {
	if opts.Title == "" {
		return domain.Decision{}, ValidationError{Field: "title"}
	}
	if opts.ProblemStatement == "" {
		return domain.Decision{}, ValidationError{Field: "problem_statement"}
	}
	var (
		typ    domain.DecisionType
		source domain.TypeSource
	)
	if opts.Type != "" {
		typ = domain.DecisionType(opts.Type)
		if !typ.Valid() {
			return domain.Decision{}, ValidationError{Field: "type", Reason: fmt.Sprintf("unknown decision type %q", opts.Type)}
		}
		source = domain.TypeSourceExplicit
	} else {
		var matched bool
		typ, matched = e.Classifier.Classify(opts.Title + " " + opts.ProblemStatement)
		source = domain.TypeSourceClassified
		if !matched {
			source = domain.TypeSourceDefault
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	d := domain.Decision{
		ID:               uuid.New().String(),
		Type:             typ,
		TypeSource:       source,
		Title:            opts.Title,
		ProblemStatement: opts.ProblemStatement,
		Stakeholders:     opts.Stakeholders,
		ValuesStatement:  opts.ValuesStatement,
		Status:           domain.StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()

	if err := e.Store.InsertDecision(ctx, tx, d); err != nil {
		return domain.Decision{}, fmt.Errorf("insert decision: %w", err)
	}
	if _, err := e.recompute(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if err := e.Events.Append(ctx, tx, "decision.created", d.ID, opts.ActorID, events.EventPayload{
		"title":       d.Title,
		"type":        d.Type,
		"type_source": d.TypeSource,
	}); err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	return d, nil
}

// OptionInput carries fields for a candidate option.
type OptionInput struct {
	Name           string
	Pros           []string
	Cons           []string
	Risks          []string
	EstimateEffort string
	EstimateCost   string
}

// AddOption appends an option to a decision still accepting alternatives.
// The first option advances draft -> options_captured.
func (e Engine) AddOption(ctx context.Context, decisionID string, in OptionInput, actorID string) (domain.DecisionOption, error) {
	if in.Name == "" {
		return domain.DecisionOption{}, ValidationError{Field: "name"}
	}
	d, err := e.Store.GetDecision(ctx, decisionID)
	if err != nil {
		return domain.DecisionOption{}, err
	}
	if d.Status != domain.StatusDraft && d.Status != domain.StatusOptionsCaptured {
		return domain.DecisionOption{}, StateError{Op: "add option", Status: d.Status, Reason: "decision already decided"}
	}
	now := e.now().UTC().Format(time.RFC3339)
	o := domain.DecisionOption{
		ID:             uuid.New().String(),
		DecisionID:     d.ID,
		Name:           in.Name,
		Pros:           in.Pros,
		Cons:           in.Cons,
		Risks:          in.Risks,
		EstimateEffort: in.EstimateEffort,
		EstimateCost:   in.EstimateCost,
		CreatedAt:      now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DecisionOption{}, err
	}
	defer tx.Rollback()

	if err := e.Store.InsertOption(ctx, tx, o); err != nil {
		return domain.DecisionOption{}, fmt.Errorf("insert option: %w", err)
	}
	if d.Status == domain.StatusDraft {
		d.Status = domain.StatusOptionsCaptured
	}
	d.UpdatedAt = now
	if err := e.Store.UpdateDecision(ctx, tx, d); err != nil {
		return domain.DecisionOption{}, err
	}
	if _, err := e.recompute(ctx, tx, d); err != nil {
		return domain.DecisionOption{}, err
	}
	if err := e.Events.Append(ctx, tx, "decision.option.added", d.ID, actorID, events.EventPayload{
		"option_id": o.ID,
		"name":      o.Name,
	}); err != nil {
		return domain.DecisionOption{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DecisionOption{}, err
	}
	return o, nil
}

// ChooseOptions are parameters for deciding.
type ChooseOptions struct {
	DecisionID string
	OptionID   string
	Reasoning  string
	DecidedBy  string
	// ReviewDate optionally schedules the follow-up review (YYYY-MM-DD).
	ReviewDate string
	// ScheduleDefaultReview derives ReviewDate from the configured horizon
	// when no explicit date is given.
	ScheduleDefaultReview bool
	ActorID               string
}

// Choose marks one option as taken and advances the decision to decided.
func (e Engine) Choose(ctx context.Context, opts ChooseOptions) (domain.Decision, error) {
	d, err := e.Store.GetDecision(ctx, opts.DecisionID)
	if err != nil {
		return domain.Decision{}, err
	}
	switch d.Status {
	case domain.StatusOptionsCaptured:
	case domain.StatusDraft:
		return domain.Decision{}, StateError{Op: "choose", Status: d.Status, Reason: "no options captured"}
	default:
		return domain.Decision{}, StateError{Op: "choose", Status: d.Status, Reason: "already decided"}
	}
	reviewDate := opts.ReviewDate
	if reviewDate == "" && opts.ScheduleDefaultReview && e.Config != nil && e.Config.Review.DefaultDays > 0 {
		reviewDate = e.now().UTC().AddDate(0, 0, e.Config.Review.DefaultDays).Format("2006-01-02")
	}
	if reviewDate != "" {
		if _, err := time.Parse("2006-01-02", reviewDate); err != nil {
			return domain.Decision{}, ValidationError{Field: "review_date", Reason: "must be YYYY-MM-DD"}
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()

	if _, err := e.Store.GetOptionTx(ctx, tx, d.ID, opts.OptionID); err != nil {
		return domain.Decision{}, err
	}
	if err := e.Store.SetChosen(ctx, tx, d.ID, opts.OptionID); err != nil {
		return domain.Decision{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	decidedBy := opts.DecidedBy
	if decidedBy == "" {
		decidedBy = opts.ActorID
	}
	optionID := opts.OptionID
	d.ChosenOptionID = &optionID
	d.Reasoning = opts.Reasoning
	d.DecidedBy = decidedBy
	d.DecidedAt = &now
	if reviewDate != "" {
		d.ReviewDate = &reviewDate
	}
	d.Status = domain.StatusDecided
	d.UpdatedAt = now
	if err := e.Store.UpdateDecision(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if _, err := e.recompute(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if err := e.Events.Append(ctx, tx, "decision.chosen", d.ID, opts.ActorID, events.EventPayload{
		"option_id":  opts.OptionID,
		"decided_by": decidedBy,
	}); err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	return d, nil
}

// ScheduleReview sets or moves the review date on a decided decision.
func (e Engine) ScheduleReview(ctx context.Context, decisionID, reviewDate, actorID string) (domain.Decision, error) {
	if reviewDate == "" {
		return domain.Decision{}, ValidationError{Field: "review_date"}
	}
	if _, err := time.Parse("2006-01-02", reviewDate); err != nil {
		return domain.Decision{}, ValidationError{Field: "review_date", Reason: "must be YYYY-MM-DD"}
	}
	d, err := e.Store.GetDecision(ctx, decisionID)
	if err != nil {
		return domain.Decision{}, err
	}
	if domain.StatusRank(d.Status) < domain.StatusRank(domain.StatusDecided) {
		return domain.Decision{}, StateError{Op: "schedule review", Status: d.Status, Reason: "decision not decided yet"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()

	d.ReviewDate = &reviewDate
	d.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := e.Store.UpdateDecision(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if _, err := e.recompute(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if err := e.Events.Append(ctx, tx, "decision.review.scheduled", d.ID, actorID, events.EventPayload{
		"review_date": reviewDate,
	}); err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	return d, nil
}

// OutcomeOptions are parameters for recording the outcome.
type OutcomeOptions struct {
	DecisionID    string
	ActualOutcome string
	SuccessLevel  string
	Lessons       string
	WouldRepeat   *bool
	ActorID       string
}

// RecordOutcome writes the single outcome for a decided decision and moves
// it to its terminal state. A second call is rejected, never overwritten.
func (e Engine) RecordOutcome(ctx context.Context, opts OutcomeOptions) (domain.Decision, error) {
	if opts.ActualOutcome == "" {
		return domain.Decision{}, ValidationError{Field: "actual_outcome"}
	}
	level := domain.SuccessLevel(opts.SuccessLevel)
	if !level.Valid() {
		return domain.Decision{}, ValidationError{Field: "success_level", Reason: fmt.Sprintf("unknown success level %q", opts.SuccessLevel)}
	}
	d, err := e.Store.GetDecision(ctx, opts.DecisionID)
	if err != nil {
		return domain.Decision{}, err
	}
	switch d.Status {
	case domain.StatusDecided:
	case domain.StatusOutcomeRecorded:
		return domain.Decision{}, StateError{Op: "record outcome", Status: d.Status, Reason: "outcome already recorded"}
	default:
		return domain.Decision{}, StateError{Op: "record outcome", Status: d.Status, Reason: "decision not decided yet"}
	}
	now := e.now().UTC().Format(time.RFC3339)
	out := domain.DecisionOutcome{
		DecisionID:     d.ID,
		ActualOutcome:  opts.ActualOutcome,
		SuccessLevel:   level,
		LessonsLearned: opts.Lessons,
		WouldRepeat:    opts.WouldRepeat,
		RecordedAt:     now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()

	if err := e.Store.InsertOutcome(ctx, tx, out); err != nil {
		return domain.Decision{}, fmt.Errorf("insert outcome: %w", err)
	}
	d.Status = domain.StatusOutcomeRecorded
	d.UpdatedAt = now
	if err := e.Store.UpdateDecision(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if _, err := e.recompute(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if err := e.Events.Append(ctx, tx, "decision.outcome.recorded", d.ID, opts.ActorID, events.EventPayload{
		"success_level": level,
	}); err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	return d, nil
}

// Delete removes a decision and, via cascade, its options, outcome and score.
func (e Engine) Delete(ctx context.Context, decisionID, actorID string) error {
	d, err := e.Store.GetDecision(ctx, decisionID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Store.DeleteDecision(ctx, tx, d.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "decision.deleted", d.ID, actorID, events.EventPayload{
		"title": d.Title,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// Summary is the full read model for one decision.
type Summary struct {
	Decision domain.Decision         `json:"decision"`
	Options  []domain.DecisionOption `json:"options"`
	Outcome  *domain.DecisionOutcome `json:"outcome,omitempty"`
	Quality  domain.DecisionQuality  `json:"quality"`
	Grade    string                  `json:"grade"`
}

// Summary assembles decision + options + outcome + quality. Always
// producible, even for a freshly created decision.
func (e Engine) Summary(ctx context.Context, decisionID string) (Summary, error) {
	d, err := e.Store.GetDecision(ctx, decisionID)
	if err != nil {
		return Summary{}, err
	}
	opts, err := e.Store.ListOptions(ctx, d.ID)
	if err != nil {
		return Summary{}, err
	}
	var outcome *domain.DecisionOutcome
	out, err := e.Store.GetOutcome(ctx, d.ID)
	if err == nil {
		outcome = &out
	} else if !errors.Is(err, store.ErrNotFound) {
		return Summary{}, err
	}
	q, err := e.Store.GetQuality(ctx, d.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Summary{}, err
	}
	return Summary{
		Decision: d,
		Options:  opts,
		Outcome:  outcome,
		Quality:  q,
		Grade:    domain.Grade(q.Total),
	}, nil
}

// recompute rescoring happens inside the mutation's transaction so a failed
// write never leaves a stale score behind.
func (e Engine) recompute(ctx context.Context, tx *sql.Tx, d domain.Decision) (domain.DecisionQuality, error) {
	opts, err := e.Store.ListOptionsTx(ctx, tx, d.ID)
	if err != nil {
		return domain.DecisionQuality{}, err
	}
	var outcome *domain.DecisionOutcome
	out, err := e.Store.GetOutcomeTx(ctx, tx, d.ID)
	if err == nil {
		outcome = &out
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.DecisionQuality{}, err
	}
	q := quality.Score(d, opts, outcome, e.now())
	if err := e.Store.UpsertQuality(ctx, tx, q); err != nil {
		return domain.DecisionQuality{}, fmt.Errorf("upsert quality: %w", err)
	}
	return q, nil
}
