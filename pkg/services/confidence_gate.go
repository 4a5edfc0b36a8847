package services

import "github.com/sqless-io/sqless-engine/pkg/models"

// ConfidenceGate evaluates the ranked candidate list and decides between
// auto-selection, the clarification path and expert escalation. It is the
// only component allowed to auto-select a spec.
type ConfidenceGate struct {
	highConfThreshold   float64
	clarifyingThreshold float64
	scoreMargin         float64
}

// NewConfidenceGate creates a gate with the given thresholds. Zero
// thresholds fall back to the defaults (0.85 / 0.65 / 0.15).
func NewConfidenceGate(highConf, clarifying, margin float64) *ConfidenceGate {
	if highConf == 0 {
		highConf = 0.85
	}
	if clarifying == 0 {
		clarifying = 0.65
	}
	if margin == 0 {
		margin = 0.15
	}
	return &ConfidenceGate{
		highConfThreshold:   highConf,
		clarifyingThreshold: clarifying,
		scoreMargin:         margin,
	}
}

// Evaluate sets the session's confidence, routing flag and, when the top
// candidate clears both the high-confidence threshold and the top-2
// margin, the selected spec.
func (g *ConfidenceGate) Evaluate(session *models.Session) {
	if len(session.Candidates) == 0 {
		session.Confidence = 0
		session.RouteExpert = true
		return
	}

	top := session.Candidates[0]
	secondScore := 0.0
	if len(session.Candidates) > 1 {
		secondScore = session.Candidates[1].Score
	}

	session.Confidence = top.Score
	switch {
	case top.Score >= g.highConfThreshold && top.Score-secondScore >= g.scoreMargin:
		session.SelectedSpec = top.Spec
		session.RouteExpert = false
	case top.Score >= g.clarifyingThreshold:
		session.RouteExpert = false
	default:
		session.RouteExpert = true
	}
}

// NeedsClarification reports whether the session still lacks a selected
// spec. The clarification UI stays available even on the expert path so
// the user can keep narrowing slots while waiting.
func (g *ConfidenceGate) NeedsClarification(session *models.Session) bool {
	return session.SelectedSpec == nil
}
