package services

import "github.com/sqless-io/sqless-engine/pkg/models"

// maxRoutedReviewers bounds the reviewer list returned per escalation.
const maxRoutedReviewers = 3

// ExpertRouter supplies reviewer identities for escalated sessions and
// applies expert decisions back onto the session.
type ExpertRouter struct {
	reviewers []string
}

// NewExpertRouter creates a router over the configured reviewer list.
func NewExpertRouter(reviewers []string) *ExpertRouter {
	return &ExpertRouter{reviewers: reviewers}
}

// Route returns the reviewers an escalated session should reach, capped
// at three. There is no per-session personalization.
func (r *ExpertRouter) Route(_ *models.Session) []string {
	if len(r.reviewers) <= maxRoutedReviewers {
		return r.reviewers
	}
	return r.reviewers[:maxRoutedReviewers]
}

// ApplyDecision finalizes the session with the given candidate, or the
// session's top candidate when nil. With neither available the session
// is left untouched; out-of-order client actions must stay harmless.
func (r *ExpertRouter) ApplyDecision(session *models.Session, candidate *models.Candidate) {
	chosen := candidate
	if chosen == nil {
		chosen = session.TopCandidate()
	}
	if chosen == nil {
		return
	}
	session.SelectedSpec = chosen.Spec
	session.RouteExpert = false
}
