package models

// Clarification slot identifiers. A slot is a single disambiguation axis
// addressed by one clarification question.
const (
	SlotMetricCaliber   = "metric_caliber"
	SlotIndustryMapping = "industry_mapping"
	SlotTimeSemantics   = "time_semantics"
)

// Time granularity labels used by intent parsing and conflict resolution.
const (
	GranularityDay  = "天"
	GranularityWeek = "周"
)

// AdjustmentKind tags one entry in the intent's applied-adjustments list.
type AdjustmentKind string

// Adjustment kinds produced by conflict resolution.
const (
	AdjustGranularity AdjustmentKind = "granularity_override"
	AdjustCaliber     AdjustmentKind = "caliber_override"
)

// AppliedAdjustment records one conflict-resolution side effect in a
// structured form so the renderer and confirmation payloads can consume
// it losslessly.
type AppliedAdjustment struct {
	Kind  AdjustmentKind `json:"kind"`
	Value string         `json:"value"`
}

// ParsedIntent is the structured reading of a raw metric request. It is
// created once per session and mutated only by conflict resolution.
type ParsedIntent struct {
	RawQuery    string              `json:"raw_query"`
	Metrics     []string            `json:"metrics,omitempty"`
	Dimensions  []string            `json:"dimensions,omitempty"`
	TimeRange   string              `json:"time_range,omitempty"`
	Granularity string              `json:"granularity,omitempty"`
	Adjustments []AppliedAdjustment `json:"adjustments,omitempty"`
}

// GranularityOverride returns the granularity applied by conflict
// resolution, or "" when no override has been recorded.
func (p *ParsedIntent) GranularityOverride() string {
	for _, adj := range p.Adjustments {
		if adj.Kind == AdjustGranularity {
			return adj.Value
		}
	}
	return ""
}

// CaliberOverride returns the caliber applied by conflict resolution,
// or "" when no override has been recorded.
func (p *ParsedIntent) CaliberOverride() string {
	for _, adj := range p.Adjustments {
		if adj.Kind == AdjustCaliber {
			return adj.Value
		}
	}
	return ""
}

// ClarificationQuestion is one disambiguation question offered to the
// user. Recommended is recomputed per request, never stored.
type ClarificationQuestion struct {
	Slot        string   `json:"slot"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Recommended string   `json:"recommended,omitempty"`
}

// ClarificationAnswer is the chosen value for one slot. One answer per
// slot; last write wins.
type ClarificationAnswer struct {
	Slot  string `json:"slot"`
	Value string `json:"value"`
}

// ConflictOption is one mutually exclusive resolution of a detected
// conflict.
type ConflictOption struct {
	OptionID         string `json:"option_id"`
	Label            string `json:"label"`
	Consequence      string `json:"consequence"`
	ApplyGranularity string `json:"apply_granularity,omitempty"`
	ApplyCaliber     string `json:"apply_metric_caliber,omitempty"`
}

// ConflictNotice is a heuristically detected contradiction in the parsed
// intent. It is created at session start and cleared once an option is
// applied.
type ConflictNotice struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Options []ConflictOption `json:"options"`
}

// Session is the central mutable aggregate of one resolution dialogue.
// The session registry serializes all mutation; components never lock.
type Session struct {
	SessionID      string                         `json:"session_id"`
	User           string                         `json:"user"`
	Intent         *ParsedIntent                  `json:"intent"`
	Candidates     []Candidate                    `json:"candidates,omitempty"`
	Clarifications map[string]ClarificationAnswer `json:"clarifications,omitempty"`
	SelectedSpec   *MetricSpec                    `json:"selected_spec,omitempty"`
	Confidence     float64                        `json:"confidence"`
	RouteExpert    bool                           `json:"route_expert"`
	Conflict       *ConflictNotice                `json:"conflict,omitempty"`
	ForwardedTo    string                         `json:"forwarded_to,omitempty"`
}

// NewSession creates a session for a parsed intent with empty
// clarification state.
func NewSession(sessionID, user string, intent *ParsedIntent) *Session {
	return &Session{
		SessionID:      sessionID,
		User:           user,
		Intent:         intent,
		Clarifications: make(map[string]ClarificationAnswer),
	}
}

// TopCandidate returns the highest-ranked candidate, or nil when the
// candidate list is empty.
func (s *Session) TopCandidate() *Candidate {
	if len(s.Candidates) == 0 {
		return nil
	}
	return &s.Candidates[0]
}

// Answer returns the clarification answer for a slot, if present.
func (s *Session) Answer(slot string) (ClarificationAnswer, bool) {
	ans, ok := s.Clarifications[slot]
	return ans, ok
}
