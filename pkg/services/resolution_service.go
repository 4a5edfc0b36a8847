package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/repositories"
	enginesql "github.com/sqless-io/sqless-engine/pkg/sql"
)

// ResolutionService drives one metric resolution session from intent
// extraction to rendered SQL. All mutating operations expect the caller
// (session registry) to have serialized access to the session.
type ResolutionService interface {
	// StartSession parses the query, detects conflicts, retrieves and
	// gates candidates, and returns the new session. The caller owns
	// registration of the session in its registry.
	StartSession(ctx context.Context, query, user string, forceExpert bool) (*models.Session, error)

	// Clarify applies the answers, then finalizes the session on its top
	// candidate.
	Clarify(ctx context.Context, session *models.Session, answers []models.ClarificationAnswer)

	// SelectSpec explicitly picks a candidate by spec id and bumps its
	// usage counter. Returns ErrSpecNotInSession for foreign ids.
	SelectSpec(ctx context.Context, session *models.Session, specID string) error

	// GenerateSQL renders the selected spec. Returns ErrNoSpecSelected
	// when the session has no terminal choice; this is a caller contract
	// violation, not a transient failure.
	GenerateSQL(ctx context.Context, session *models.Session) (string, error)

	// RouteToExpert returns the reviewers for an escalated session.
	RouteToExpert(session *models.Session) []string

	// ApplyExpertDecision finalizes the session on the candidate with the
	// given spec id, or on the top candidate when specID is empty. With
	// no candidates at all the call is a silent no-op.
	ApplyExpertDecision(ctx context.Context, session *models.Session, specID string) error

	// ResolveConflict applies a conflict option to the session intent and
	// clears the notice. Absent conflicts and unknown option ids are
	// silent no-ops.
	ResolveConflict(session *models.Session, optionID string)

	// NextQuestions returns the pending clarification questions ranked by
	// information gain.
	NextQuestions(session *models.Session) []models.ClarificationQuestion

	// NeedsClarification reports whether the session still lacks a
	// selected spec.
	NeedsClarification(session *models.Session) bool

	// SlotForm returns the full clarification form with effective values.
	SlotForm(session *models.Session) []SlotFormEntry

	// SummarizeAnswers renders accumulated answers as one line.
	SummarizeAnswers(session *models.Session) string
}

type resolutionService struct {
	catalog   repositories.CatalogRepository
	parser    *IntentParser
	retriever *CandidateRetriever
	detector  *ConflictDetector
	gate      *ConfidenceGate
	clarifier *ClarificationEngine
	router    *ExpertRouter
	logger    *zap.Logger
}

// NewResolutionService wires the session engine over a catalog.
func NewResolutionService(
	catalog repositories.CatalogRepository,
	parser *IntentParser,
	retriever *CandidateRetriever,
	detector *ConflictDetector,
	gate *ConfidenceGate,
	clarifier *ClarificationEngine,
	router *ExpertRouter,
	logger *zap.Logger,
) ResolutionService {
	return &resolutionService{
		catalog:   catalog,
		parser:    parser,
		retriever: retriever,
		detector:  detector,
		gate:      gate,
		clarifier: clarifier,
		router:    router,
		logger:    logger,
	}
}

var _ ResolutionService = (*resolutionService)(nil)

func (s *resolutionService) StartSession(ctx context.Context, query, user string, forceExpert bool) (*models.Session, error) {
	intent := s.parser.Parse(query)
	session := models.NewSession(uuid.NewString(), user, intent)
	session.Conflict = s.detector.Detect(intent)

	// Fall back to the raw query as a single keyword when no metric
	// vocabulary matched.
	keywords := intent.Metrics
	if len(keywords) == 0 {
		keywords = []string{query}
	}

	candidates, err := s.retriever.Retrieve(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve candidates: %w", err)
	}
	session.Candidates = candidates

	s.gate.Evaluate(session)

	// An open conflict or an explicit caller request always routes to an
	// expert, regardless of gate confidence.
	if session.Conflict != nil {
		session.RouteExpert = true
	}
	if forceExpert {
		session.RouteExpert = true
	}

	s.logger.Info("Resolution session started",
		zap.String("session_id", session.SessionID),
		zap.String("user", user),
		zap.Int("candidates", len(session.Candidates)),
		zap.Float64("confidence", session.Confidence),
		zap.Bool("route_expert", session.RouteExpert),
		zap.Bool("conflict", session.Conflict != nil),
	)
	return session, nil
}

// Clarify applies answers and then unconditionally finalizes on the top
// candidate when one exists, even if other slots remain open. That
// mirrors the observed dialogue behavior and is pinned by a regression
// test; per-slot convergence would be a gate-policy change.
func (s *resolutionService) Clarify(_ context.Context, session *models.Session, answers []models.ClarificationAnswer) {
	s.clarifier.ApplyAnswers(session, answers)
	if top := session.TopCandidate(); top != nil {
		session.SelectedSpec = top.Spec
	}
}

func (s *resolutionService) SelectSpec(ctx context.Context, session *models.Session, specID string) error {
	for i := range session.Candidates {
		if session.Candidates[i].Spec.SpecID == specID {
			session.SelectedSpec = session.Candidates[i].Spec
			s.bumpUsage(ctx, specID)
			return nil
		}
	}
	return fmt.Errorf("spec %s: %w", specID, apperrors.ErrSpecNotInSession)
}

func (s *resolutionService) GenerateSQL(ctx context.Context, session *models.Session) (string, error) {
	if session.SelectedSpec == nil {
		return "", fmt.Errorf("session %s: %w", session.SessionID, apperrors.ErrNoSpecSelected)
	}

	rendered := enginesql.Render(session.SelectedSpec, session)
	s.bumpUsage(ctx, session.SelectedSpec.SpecID)
	return rendered, nil
}

func (s *resolutionService) RouteToExpert(session *models.Session) []string {
	return s.router.Route(session)
}

func (s *resolutionService) ApplyExpertDecision(_ context.Context, session *models.Session, specID string) error {
	if specID == "" {
		s.router.ApplyDecision(session, nil)
		return nil
	}

	for i := range session.Candidates {
		if session.Candidates[i].Spec.SpecID == specID {
			s.router.ApplyDecision(session, &session.Candidates[i])
			return nil
		}
	}
	return fmt.Errorf("spec %s: %w", specID, apperrors.ErrSpecNotInSession)
}

func (s *resolutionService) ResolveConflict(session *models.Session, optionID string) {
	if session.Conflict == nil {
		return
	}
	for _, option := range session.Conflict.Options {
		if option.OptionID == optionID {
			ApplyConflictOption(session.Intent, option)
			session.Conflict = nil
			s.logger.Debug("Conflict resolved",
				zap.String("session_id", session.SessionID),
				zap.String("option_id", optionID))
			return
		}
	}
	// Unknown option id: leave the notice open.
}

func (s *resolutionService) NextQuestions(session *models.Session) []models.ClarificationQuestion {
	return s.clarifier.NextQuestions(session)
}

func (s *resolutionService) NeedsClarification(session *models.Session) bool {
	return s.gate.NeedsClarification(session)
}

func (s *resolutionService) SlotForm(session *models.Session) []SlotFormEntry {
	return s.clarifier.SlotForm(session)
}

func (s *resolutionService) SummarizeAnswers(session *models.Session) string {
	return s.clarifier.SummarizeAnswers(session)
}

// bumpUsage increments the catalog usage counter; a failed bump never
// fails the user-facing operation.
func (s *resolutionService) bumpUsage(ctx context.Context, specID string) {
	if err := s.catalog.BumpUsage(ctx, specID); err != nil {
		s.logger.Warn("Failed to bump spec usage",
			zap.String("spec_id", specID),
			zap.Error(err))
	}
}
