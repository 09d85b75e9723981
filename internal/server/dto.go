package server

import (
	"encoding/json"

	"decisionline/internal/domain"
	"decisionline/internal/engine"
)

// Request payloads

type CreateDecisionRequest struct {
	Type             string   `json:"type,omitempty" enum:"strategic,hire,vendor,architecture,resource,process,incident,investment"`
	Title            string   `json:"title"`
	ProblemStatement string   `json:"problem_statement"`
	Stakeholders     []string `json:"stakeholders,omitempty"`
	ValuesStatement  string   `json:"values_statement,omitempty"`
}

type AddOptionRequest struct {
	Name           string   `json:"name"`
	Pros           []string `json:"pros,omitempty"`
	Cons           []string `json:"cons,omitempty"`
	Risks          []string `json:"risks,omitempty"`
	EstimateEffort string   `json:"estimate_effort,omitempty"`
	EstimateCost   string   `json:"estimate_cost,omitempty"`
}

type ChooseRequest struct {
	OptionID  string `json:"option_id"`
	Reasoning string `json:"reasoning,omitempty"`
	DecidedBy string `json:"decided_by,omitempty"`
	// ReviewDate schedules the follow-up review (YYYY-MM-DD). When empty and
	// ScheduleDefaultReview is set, the configured horizon applies.
	ReviewDate            string `json:"review_date,omitempty" format:"date"`
	ScheduleDefaultReview bool   `json:"schedule_default_review,omitempty"`
}

type ScheduleReviewRequest struct {
	ReviewDate string `json:"review_date" format:"date"`
}

type RecordOutcomeRequest struct {
	ActualOutcome  string `json:"actual_outcome"`
	SuccessLevel   string `json:"success_level" enum:"exceeded,met,partial,missed,failed"`
	LessonsLearned string `json:"lessons_learned,omitempty"`
	WouldRepeat    *bool  `json:"would_repeat,omitempty"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type DecisionResponse struct {
	ID               string   `json:"id"`
	Type             string   `json:"type" enum:"strategic,hire,vendor,architecture,resource,process,incident,investment"`
	TypeSource       string   `json:"type_source" enum:"explicit,classified,default"`
	Title            string   `json:"title"`
	ProblemStatement string   `json:"problem_statement"`
	Stakeholders     []string `json:"stakeholders"`
	ValuesStatement  string   `json:"values_statement,omitempty"`
	ReviewDate       *string  `json:"review_date,omitempty" format:"date"`
	Status           string   `json:"status" enum:"draft,options_captured,decided,outcome_recorded"`
	ChosenOptionID   *string  `json:"chosen_option_id,omitempty"`
	Reasoning        string   `json:"reasoning,omitempty"`
	DecidedBy        string   `json:"decided_by,omitempty"`
	DecidedAt        *string  `json:"decided_at,omitempty" format:"date-time"`
	CreatedAt        string   `json:"created_at" format:"date-time"`
	UpdatedAt        string   `json:"updated_at" format:"date-time"`
}

type OptionResponse struct {
	ID             string   `json:"id"`
	DecisionID     string   `json:"decision_id"`
	Name           string   `json:"name"`
	Pros           []string `json:"pros"`
	Cons           []string `json:"cons"`
	Risks          []string `json:"risks"`
	EstimateEffort string   `json:"estimate_effort,omitempty"`
	EstimateCost   string   `json:"estimate_cost,omitempty"`
	Chosen         bool     `json:"chosen"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

type OutcomeResponse struct {
	DecisionID     string `json:"decision_id"`
	ActualOutcome  string `json:"actual_outcome"`
	SuccessLevel   string `json:"success_level" enum:"exceeded,met,partial,missed,failed"`
	LessonsLearned string `json:"lessons_learned,omitempty"`
	WouldRepeat    *bool  `json:"would_repeat,omitempty"`
	RecordedAt     string `json:"recorded_at" format:"date-time"`
}

type QualityResponse struct {
	Frame        int    `json:"frame"`
	Alternatives int    `json:"alternatives"`
	Information  int    `json:"information"`
	Values       int    `json:"values"`
	Reasoning    int    `json:"reasoning"`
	Commitment   int    `json:"commitment"`
	Total        int    `json:"total"`
	Grade        string `json:"grade" enum:"A,B,C,D,F"`
	ComputedAt   string `json:"computed_at,omitempty" format:"date-time"`
}

type SummaryResponse struct {
	Decision DecisionResponse `json:"decision"`
	Options  []OptionResponse `json:"options"`
	Outcome  *OutcomeResponse `json:"outcome,omitempty"`
	Quality  QualityResponse  `json:"quality"`
}

type paginatedDecisions struct {
	Items      []DecisionResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	DecisionID string         `json:"decision_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type eventList struct {
	Items []EventResponse `json:"items"`
}

// Mappers

func decisionResponse(d domain.Decision) DecisionResponse {
	return DecisionResponse{
		ID:               d.ID,
		Type:             string(d.Type),
		TypeSource:       string(d.TypeSource),
		Title:            d.Title,
		ProblemStatement: d.ProblemStatement,
		Stakeholders:     nonNilSlice(d.Stakeholders),
		ValuesStatement:  d.ValuesStatement,
		ReviewDate:       d.ReviewDate,
		Status:           d.Status,
		ChosenOptionID:   d.ChosenOptionID,
		Reasoning:        d.Reasoning,
		DecidedBy:        d.DecidedBy,
		DecidedAt:        d.DecidedAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func mapDecisions(items []domain.Decision) []DecisionResponse {
	res := make([]DecisionResponse, 0, len(items))
	for _, d := range items {
		res = append(res, decisionResponse(d))
	}
	return res
}

func optionResponse(o domain.DecisionOption) OptionResponse {
	return OptionResponse{
		ID:             o.ID,
		DecisionID:     o.DecisionID,
		Name:           o.Name,
		Pros:           nonNilSlice(o.Pros),
		Cons:           nonNilSlice(o.Cons),
		Risks:          nonNilSlice(o.Risks),
		EstimateEffort: o.EstimateEffort,
		EstimateCost:   o.EstimateCost,
		Chosen:         o.Chosen,
		CreatedAt:      o.CreatedAt,
	}
}

func outcomeResponse(o domain.DecisionOutcome) OutcomeResponse {
	return OutcomeResponse{
		DecisionID:     o.DecisionID,
		ActualOutcome:  o.ActualOutcome,
		SuccessLevel:   string(o.SuccessLevel),
		LessonsLearned: o.LessonsLearned,
		WouldRepeat:    o.WouldRepeat,
		RecordedAt:     o.RecordedAt,
	}
}

func qualityResponse(q domain.DecisionQuality, grade string) QualityResponse {
	return QualityResponse{
		Frame:        q.Frame,
		Alternatives: q.Alternatives,
		Information:  q.Information,
		Values:       q.Values,
		Reasoning:    q.Reasoning,
		Commitment:   q.Commitment,
		Total:        q.Total,
		Grade:        grade,
		ComputedAt:   q.ComputedAt,
	}
}

func summaryResponse(s engine.Summary) SummaryResponse {
	res := SummaryResponse{
		Decision: decisionResponse(s.Decision),
		Options:  []OptionResponse{},
		Quality:  qualityResponse(s.Quality, s.Grade),
	}
	for _, o := range s.Options {
		res.Options = append(res.Options, optionResponse(o))
	}
	if s.Outcome != nil {
		out := outcomeResponse(*s.Outcome)
		res.Outcome = &out
	}
	return res
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		DecisionID: e.DecisionID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
