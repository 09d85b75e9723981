package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"decisionline/internal/domain"
)

// Store wraps the SQLite connection for the four decision record sets.
// Mutations take a *sql.Tx so the engine can group invariant checks, writes
// and the quality recomputation into one atomic unit.
type Store struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableBoolPtr(v *bool) any {
	if v == nil {
		return nil
	}
	if *v {
		return 1
	}
	return 0
}

func marshalStringSlice(in []string) any {
	if len(in) == 0 {
		return nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	return string(b)
}

func unmarshalStringSlice(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(raw.String), &out)
	return out
}

// --- decisions ---

const decisionColumns = `id,type,type_source,title,problem_statement,stakeholders_json,values_statement,review_date,status,chosen_option_id,reasoning,decided_by,decided_at,created_at,updated_at`

func (s Store) InsertDecision(ctx context.Context, tx *sql.Tx, d domain.Decision) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO decisions(`+decisionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, string(d.Type), string(d.TypeSource), d.Title, d.ProblemStatement,
		marshalStringSlice(d.Stakeholders), nullable(d.ValuesStatement), nullableStringPtr(d.ReviewDate),
		d.Status, nullableStringPtr(d.ChosenOptionID), nullable(d.Reasoning), nullable(d.DecidedBy),
		nullableStringPtr(d.DecidedAt), d.CreatedAt, d.UpdatedAt)
	return err
}

func (s Store) UpdateDecision(ctx context.Context, tx *sql.Tx, d domain.Decision) error {
	res, err := tx.ExecContext(ctx, `UPDATE decisions SET type=?, type_source=?, title=?, problem_statement=?, stakeholders_json=?, values_statement=?, review_date=?, status=?, chosen_option_id=?, reasoning=?, decided_by=?, decided_at=?, updated_at=? WHERE id=?`,
		string(d.Type), string(d.TypeSource), d.Title, d.ProblemStatement,
		marshalStringSlice(d.Stakeholders), nullable(d.ValuesStatement), nullableStringPtr(d.ReviewDate),
		d.Status, nullableStringPtr(d.ChosenOptionID), nullable(d.Reasoning), nullable(d.DecidedBy),
		nullableStringPtr(d.DecidedAt), d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type decisionScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row decisionScanner) (domain.Decision, error) {
	var d domain.Decision
	var typ, typeSource string
	var stakeholders, values, reviewDate, chosenOption, reasoning, decidedBy, decidedAt sql.NullString
	err := row.Scan(&d.ID, &typ, &typeSource, &d.Title, &d.ProblemStatement,
		&stakeholders, &values, &reviewDate, &d.Status, &chosenOption, &reasoning,
		&decidedBy, &decidedAt, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Type = domain.DecisionType(typ)
	d.TypeSource = domain.TypeSource(typeSource)
	d.Stakeholders = unmarshalStringSlice(stakeholders)
	if values.Valid {
		d.ValuesStatement = values.String
	}
	if reviewDate.Valid {
		d.ReviewDate = &reviewDate.String
	}
	if chosenOption.Valid {
		d.ChosenOptionID = &chosenOption.String
	}
	if reasoning.Valid {
		d.Reasoning = reasoning.String
	}
	if decidedBy.Valid {
		d.DecidedBy = decidedBy.String
	}
	if decidedAt.Valid {
		d.DecidedAt = &decidedAt.String
	}
	return d, nil
}

func (s Store) GetDecision(ctx context.Context, id string) (domain.Decision, error) {
	return scanDecision(s.DB.QueryRowContext(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE id=?`, id))
}

func (s Store) GetDecisionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Decision, error) {
	return scanDecision(tx.QueryRowContext(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE id=?`, id))
}

func (s Store) DeleteDecision(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM decisions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DecisionFilters narrows ListDecisions. Cursor pagination keys on
// (created_at, id) descending.
type DecisionFilters struct {
	Status          string
	Type            string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (s Store) ListDecisions(ctx context.Context, f DecisionFilters) ([]domain.Decision, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + decisionColumns + ` FROM decisions ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// --- options ---

const optionColumns = `id,decision_id,name,pros_json,cons_json,risks_json,estimate_effort,estimate_cost,chosen,created_at`

func (s Store) InsertOption(ctx context.Context, tx *sql.Tx, o domain.DecisionOption) error {
	chosen := 0
	if o.Chosen {
		chosen = 1
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO decision_options(`+optionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.DecisionID, o.Name, marshalStringSlice(o.Pros), marshalStringSlice(o.Cons),
		marshalStringSlice(o.Risks), nullable(o.EstimateEffort), nullable(o.EstimateCost), chosen, o.CreatedAt)
	return err
}

func scanOption(row decisionScanner) (domain.DecisionOption, error) {
	var o domain.DecisionOption
	var pros, cons, risks, effort, cost sql.NullString
	var chosen int
	err := row.Scan(&o.ID, &o.DecisionID, &o.Name, &pros, &cons, &risks, &effort, &cost, &chosen, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	o.Pros = unmarshalStringSlice(pros)
	o.Cons = unmarshalStringSlice(cons)
	o.Risks = unmarshalStringSlice(risks)
	if effort.Valid {
		o.EstimateEffort = effort.String
	}
	if cost.Valid {
		o.EstimateCost = cost.String
	}
	o.Chosen = chosen != 0
	return o, nil
}

func (s Store) ListOptions(ctx context.Context, decisionID string) ([]domain.DecisionOption, error) {
	return s.listOptions(ctx, s.DB.QueryContext, decisionID)
}

func (s Store) ListOptionsTx(ctx context.Context, tx *sql.Tx, decisionID string) ([]domain.DecisionOption, error) {
	return s.listOptions(ctx, tx.QueryContext, decisionID)
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (s Store) listOptions(ctx context.Context, query queryFunc, decisionID string) ([]domain.DecisionOption, error) {
	rows, err := query(ctx, `SELECT `+optionColumns+` FROM decision_options WHERE decision_id=? ORDER BY created_at ASC, id ASC`, decisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DecisionOption
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (s Store) GetOptionTx(ctx context.Context, tx *sql.Tx, decisionID, optionID string) (domain.DecisionOption, error) {
	return scanOption(tx.QueryRowContext(ctx, `SELECT `+optionColumns+` FROM decision_options WHERE decision_id=? AND id=?`, decisionID, optionID))
}

// SetChosen marks exactly one option of the decision as chosen and clears
// the flag on every other option in the same statement.
func (s Store) SetChosen(ctx context.Context, tx *sql.Tx, decisionID, optionID string) error {
	res, err := tx.ExecContext(ctx, `UPDATE decision_options SET chosen = (id=?) WHERE decision_id=?`, optionID, decisionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- outcomes ---

func (s Store) InsertOutcome(ctx context.Context, tx *sql.Tx, o domain.DecisionOutcome) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO decision_outcomes(decision_id,actual_outcome,success_level,lessons_learned,would_repeat,recorded_at) VALUES (?,?,?,?,?,?)`,
		o.DecisionID, o.ActualOutcome, string(o.SuccessLevel), nullable(o.LessonsLearned), nullableBoolPtr(o.WouldRepeat), o.RecordedAt)
	return err
}

func scanOutcome(row decisionScanner) (domain.DecisionOutcome, error) {
	var o domain.DecisionOutcome
	var level string
	var lessons sql.NullString
	var wouldRepeat sql.NullInt64
	err := row.Scan(&o.DecisionID, &o.ActualOutcome, &level, &lessons, &wouldRepeat, &o.RecordedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	o.SuccessLevel = domain.SuccessLevel(level)
	if lessons.Valid {
		o.LessonsLearned = lessons.String
	}
	if wouldRepeat.Valid {
		b := wouldRepeat.Int64 != 0
		o.WouldRepeat = &b
	}
	return o, nil
}

func (s Store) GetOutcome(ctx context.Context, decisionID string) (domain.DecisionOutcome, error) {
	return scanOutcome(s.DB.QueryRowContext(ctx, `SELECT decision_id,actual_outcome,success_level,lessons_learned,would_repeat,recorded_at FROM decision_outcomes WHERE decision_id=?`, decisionID))
}

func (s Store) GetOutcomeTx(ctx context.Context, tx *sql.Tx, decisionID string) (domain.DecisionOutcome, error) {
	return scanOutcome(tx.QueryRowContext(ctx, `SELECT decision_id,actual_outcome,success_level,lessons_learned,would_repeat,recorded_at FROM decision_outcomes WHERE decision_id=?`, decisionID))
}

// --- quality ---

func (s Store) UpsertQuality(ctx context.Context, tx *sql.Tx, q domain.DecisionQuality) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO decision_quality(decision_id,frame,alternatives,information,"values",reasoning,commitment,total,computed_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(decision_id) DO UPDATE SET frame=excluded.frame, alternatives=excluded.alternatives, information=excluded.information,
"values"=excluded."values", reasoning=excluded.reasoning, commitment=excluded.commitment, total=excluded.total, computed_at=excluded.computed_at`,
		q.DecisionID, q.Frame, q.Alternatives, q.Information, q.Values, q.Reasoning, q.Commitment, q.Total, q.ComputedAt)
	return err
}

func scanQuality(row decisionScanner) (domain.DecisionQuality, error) {
	var q domain.DecisionQuality
	err := row.Scan(&q.DecisionID, &q.Frame, &q.Alternatives, &q.Information, &q.Values, &q.Reasoning, &q.Commitment, &q.Total, &q.ComputedAt)
	if err == sql.ErrNoRows {
		return q, ErrNotFound
	}
	return q, err
}

func (s Store) GetQuality(ctx context.Context, decisionID string) (domain.DecisionQuality, error) {
	return scanQuality(s.DB.QueryRowContext(ctx, `SELECT decision_id,frame,alternatives,information,"values",reasoning,commitment,total,computed_at FROM decision_quality WHERE decision_id=?`, decisionID))
}

// --- streaming scan for the pattern analyzer ---

// DecisionRecord joins one decision with its score and, when recorded, its
// outcome. Quality is zero-valued for rows scored before any recompute ran.
type DecisionRecord struct {
	Decision domain.Decision
	Quality  domain.DecisionQuality
	Outcome  *domain.DecisionOutcome
}

// ForEachDecision streams every decision joined with quality and outcome,
// oldest first, invoking fn per row. It never materializes the full history;
// cancelling ctx or returning an error from fn stops the scan.
func (s Store) ForEachDecision(ctx context.Context, fn func(DecisionRecord) error) error {
	query := `SELECT d.` + strings.ReplaceAll(decisionColumns, ",", ",d.") + `,
q.frame, q.alternatives, q.information, q."values", q.reasoning, q.commitment, q.total, q.computed_at,
o.actual_outcome, o.success_level, o.lessons_learned, o.would_repeat, o.recorded_at
FROM decisions d
LEFT JOIN decision_quality q ON q.decision_id = d.id
LEFT JOIN decision_outcomes o ON o.decision_id = d.id
ORDER BY d.created_at ASC, d.id ASC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec DecisionRecord
		var d domain.Decision
		var typ, typeSource string
		var stakeholders, values, reviewDate, chosenOption, reasoning, decidedBy, decidedAt sql.NullString
		var frame, alternatives, information, vals, reas, commitment, total sql.NullInt64
		var computedAt sql.NullString
		var actualOutcome, successLevel, lessons, recordedAt sql.NullString
		var wouldRepeat sql.NullInt64
		if err := rows.Scan(&d.ID, &typ, &typeSource, &d.Title, &d.ProblemStatement,
			&stakeholders, &values, &reviewDate, &d.Status, &chosenOption, &reasoning,
			&decidedBy, &decidedAt, &d.CreatedAt, &d.UpdatedAt,
			&frame, &alternatives, &information, &vals, &reas, &commitment, &total, &computedAt,
			&actualOutcome, &successLevel, &lessons, &wouldRepeat, &recordedAt); err != nil {
			return err
		}
		d.Type = domain.DecisionType(typ)
		d.TypeSource = domain.TypeSource(typeSource)
		d.Stakeholders = unmarshalStringSlice(stakeholders)
		if values.Valid {
			d.ValuesStatement = values.String
		}
		if reviewDate.Valid {
			d.ReviewDate = &reviewDate.String
		}
		if chosenOption.Valid {
			d.ChosenOptionID = &chosenOption.String
		}
		if reasoning.Valid {
			d.Reasoning = reasoning.String
		}
		if decidedBy.Valid {
			d.DecidedBy = decidedBy.String
		}
		if decidedAt.Valid {
			d.DecidedAt = &decidedAt.String
		}
		rec.Decision = d
		rec.Quality = domain.DecisionQuality{
			DecisionID:   d.ID,
			Frame:        int(frame.Int64),
			Alternatives: int(alternatives.Int64),
			Information:  int(information.Int64),
			Values:       int(vals.Int64),
			Reasoning:    int(reas.Int64),
			Commitment:   int(commitment.Int64),
			Total:        int(total.Int64),
			ComputedAt:   computedAt.String,
		}
		if actualOutcome.Valid {
			out := domain.DecisionOutcome{
				DecisionID:    d.ID,
				ActualOutcome: actualOutcome.String,
				SuccessLevel:  domain.SuccessLevel(successLevel.String),
				RecordedAt:    recordedAt.String,
			}
			if lessons.Valid {
				out.LessonsLearned = lessons.String
			}
			if wouldRepeat.Valid {
				b := wouldRepeat.Int64 != 0
				out.WouldRepeat = &b
			}
			rec.Outcome = &out
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// --- events ---

func (s Store) LatestEvents(ctx context.Context, limit int, evtType, decisionID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if decisionID != "" {
		clauses = append(clauses, "decision_id=?")
		args = append(args, decisionID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,decision_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var decision, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &decision, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if decision.Valid {
			e.DecisionID = decision.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
