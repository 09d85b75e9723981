package domain

// DecisionType is one of the eight canonical decision templates.
type DecisionType string

const (
	TypeStrategic    DecisionType = "strategic"
	TypeHire         DecisionType = "hire"
	TypeVendor       DecisionType = "vendor"
	TypeArchitecture DecisionType = "architecture"
	TypeResource     DecisionType = "resource"
	TypeProcess      DecisionType = "process"
	TypeIncident     DecisionType = "incident"
	TypeInvestment   DecisionType = "investment"
)

// Types lists every decision type in priority order for classification.
var Types = []DecisionType{
	TypeHire, TypeVendor, TypeArchitecture, TypeResource,
	TypeProcess, TypeIncident, TypeInvestment, TypeStrategic,
}

// Valid reports whether t is a known decision type.
func (t DecisionType) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// TypeSource records how a decision's type was determined. Frame scoring
// awards points only when the type did not come from the strategic fallback.
type TypeSource string

const (
	TypeSourceExplicit   TypeSource = "explicit"
	TypeSourceClassified TypeSource = "classified"
	TypeSourceDefault    TypeSource = "default"
)

// Status values. Status moves strictly forward:
// draft -> options_captured -> decided -> outcome_recorded.
const (
	StatusDraft           = "draft"
	StatusOptionsCaptured = "options_captured"
	StatusDecided         = "decided"
	StatusOutcomeRecorded = "outcome_recorded"
)

// StatusRank orders lifecycle states for forward-only checks. Unknown
// statuses rank below draft.
func StatusRank(status string) int {
	switch status {
	case StatusDraft:
		return 0
	case StatusOptionsCaptured:
		return 1
	case StatusDecided:
		return 2
	case StatusOutcomeRecorded:
		return 3
	}
	return -1
}

// SuccessLevel classifies a recorded outcome.
type SuccessLevel string

const (
	SuccessExceeded SuccessLevel = "exceeded"
	SuccessMet      SuccessLevel = "met"
	SuccessPartial  SuccessLevel = "partial"
	SuccessMissed   SuccessLevel = "missed"
	SuccessFailed   SuccessLevel = "failed"
)

// Valid reports whether l is a known success level.
func (l SuccessLevel) Valid() bool {
	switch l {
	case SuccessExceeded, SuccessMet, SuccessPartial, SuccessMissed, SuccessFailed:
		return true
	}
	return false
}

// Succeeded reports whether the outcome counts toward success rates.
func (l SuccessLevel) Succeeded() bool {
	return l == SuccessExceeded || l == SuccessMet
}

type Decision struct {
	ID               string       `json:"id"`
	Type             DecisionType `json:"type"`
	TypeSource       TypeSource   `json:"type_source"`
	Title            string       `json:"title"`
	ProblemStatement string       `json:"problem_statement"`
	Stakeholders     []string     `json:"stakeholders,omitempty"`
	ValuesStatement  string       `json:"values_statement,omitempty"`
	ReviewDate       *string      `json:"review_date,omitempty" format:"date"`
	Status           string       `json:"status" enum:"draft,options_captured,decided,outcome_recorded"`
	ChosenOptionID   *string      `json:"chosen_option_id,omitempty"`
	Reasoning        string       `json:"reasoning,omitempty"`
	DecidedBy        string       `json:"decided_by,omitempty"`
	DecidedAt        *string      `json:"decided_at,omitempty" format:"date-time"`
	CreatedAt        string       `json:"created_at" format:"date-time"`
	UpdatedAt        string       `json:"updated_at" format:"date-time"`
}

type DecisionOption struct {
	ID             string   `json:"id"`
	DecisionID     string   `json:"decision_id"`
	Name           string   `json:"name"`
	Pros           []string `json:"pros,omitempty"`
	Cons           []string `json:"cons,omitempty"`
	Risks          []string `json:"risks,omitempty"`
	EstimateEffort string   `json:"estimate_effort,omitempty"`
	EstimateCost   string   `json:"estimate_cost,omitempty"`
	Chosen         bool     `json:"chosen"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

// FullyDocumented reports whether the option carries enough detail to count
// toward the Alternatives dimension: at least 2 pros, 2 cons and 1 risk.
func (o DecisionOption) FullyDocumented() bool {
	return len(o.Pros) >= 2 && len(o.Cons) >= 2 && len(o.Risks) >= 1
}

// HasEstimate reports whether the option carries an effort or cost estimate.
func (o DecisionOption) HasEstimate() bool {
	return o.EstimateEffort != "" || o.EstimateCost != ""
}

type DecisionOutcome struct {
	DecisionID     string       `json:"decision_id"`
	ActualOutcome  string       `json:"actual_outcome"`
	SuccessLevel   SuccessLevel `json:"success_level" enum:"exceeded,met,partial,missed,failed"`
	LessonsLearned string       `json:"lessons_learned,omitempty"`
	WouldRepeat    *bool        `json:"would_repeat,omitempty"`
	RecordedAt     string       `json:"recorded_at" format:"date-time"`
}

// DecisionQuality holds the six-dimension rubric score for one decision.
// It is always a full recomputation over the decision's current state.
type DecisionQuality struct {
	DecisionID   string `json:"decision_id"`
	Frame        int    `json:"frame"`
	Alternatives int    `json:"alternatives"`
	Information  int    `json:"information"`
	Values       int    `json:"values"`
	Reasoning    int    `json:"reasoning"`
	Commitment   int    `json:"commitment"`
	Total        int    `json:"total"`
	ComputedAt   string `json:"computed_at" format:"date-time"`
}

// Dimensions returns the six scores keyed by dimension name.
func (q DecisionQuality) Dimensions() map[string]int {
	return map[string]int{
		"frame":        q.Frame,
		"alternatives": q.Alternatives,
		"information":  q.Information,
		"values":       q.Values,
		"reasoning":    q.Reasoning,
		"commitment":   q.Commitment,
	}
}

// DimensionNames is the fixed reporting order of the rubric dimensions.
var DimensionNames = []string{"frame", "alternatives", "information", "values", "reasoning", "commitment"}

// Grade maps a total score to its reporting band.
func Grade(total int) string {
	switch {
	case total >= 50:
		return "A"
	case total >= 40:
		return "B"
	case total >= 30:
		return "C"
	case total >= 20:
		return "D"
	}
	return "F"
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	DecisionID string `json:"decision_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
