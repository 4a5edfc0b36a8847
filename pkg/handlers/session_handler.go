package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/repositories"
	"github.com/sqless-io/sqless-engine/pkg/services"
)

// Expert decision actions accepted by POST /api/expert/decision.
const (
	ExpertActionConfirm = "confirm"
	ExpertActionRevise  = "revise"
	ExpertActionForward = "forward"
)

// StartSessionRequest for POST /api/session/start.
type StartSessionRequest struct {
	Query       string `json:"query"`
	User        string `json:"user"`
	ForceExpert bool   `json:"force_expert,omitempty"`
}

// ClarifyRequest for POST /api/session/clarify.
type ClarifyRequest struct {
	SessionID string                       `json:"session_id"`
	Answers   []models.ClarificationAnswer `json:"answers"`
}

// SelectSpecRequest for POST /api/session/select_spec.
type SelectSpecRequest struct {
	SessionID string `json:"session_id"`
	SpecID    string `json:"spec_id"`
}

// GenerateSQLRequest for POST /api/session/generate_sql.
type GenerateSQLRequest struct {
	SessionID string `json:"session_id"`
}

// ResolveConflictRequest for POST /api/session/resolve_conflict.
type ResolveConflictRequest struct {
	SessionID string `json:"session_id"`
	OptionID  string `json:"option_id"`
}

// ExpertDecisionRequest for POST /api/expert/decision.
type ExpertDecisionRequest struct {
	SessionID string                       `json:"session_id"`
	Action    string                       `json:"action"`
	SpecID    string                       `json:"spec_id,omitempty"`
	Answers   []models.ClarificationAnswer `json:"answers,omitempty"`
	ForwardTo string                       `json:"forward_to,omitempty"`
}

// SessionHandler handles the resolution session HTTP surface.
type SessionHandler struct {
	svc      services.ResolutionService
	registry repositories.SessionRegistry
	payloads *PayloadBuilder
	logger   *zap.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(
	svc services.ResolutionService,
	registry repositories.SessionRegistry,
	payloads *PayloadBuilder,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		svc:      svc,
		registry: registry,
		payloads: payloads,
		logger:   logger,
	}
}

// RegisterRoutes registers the session handler's routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session/start", h.Start)
	mux.HandleFunc("POST /api/session/clarify", h.Clarify)
	mux.HandleFunc("POST /api/session/select_spec", h.SelectSpec)
	mux.HandleFunc("POST /api/session/generate_sql", h.GenerateSQL)
	mux.HandleFunc("POST /api/session/resolve_conflict", h.ResolveConflict)
	mux.HandleFunc("POST /api/expert/decision", h.ExpertDecision)
}

// Start handles POST /api/session/start.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.User == "" {
		req.User = "guest"
	}

	session, err := h.svc.StartSession(r.Context(), req.Query, req.User, req.ForceExpert)
	if err != nil {
		h.logger.Error("Failed to start session",
			zap.String("user", req.User),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "start_session_failed", err.Error())
		return
	}
	h.registry.Put(session)

	h.writeSession(w, session, "")
}

// Clarify handles POST /api/session/clarify.
func (h *SessionHandler) Clarify(w http.ResponseWriter, r *http.Request) {
	var req ClarifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	h.withSession(w, r, req.SessionID, func(session *models.Session) error {
		h.svc.Clarify(r.Context(), session, req.Answers)
		return nil
	})
}

// SelectSpec handles POST /api/session/select_spec.
func (h *SessionHandler) SelectSpec(w http.ResponseWriter, r *http.Request) {
	var req SelectSpecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	h.withSession(w, r, req.SessionID, func(session *models.Session) error {
		return h.svc.SelectSpec(r.Context(), session, req.SpecID)
	})
}

// GenerateSQL handles POST /api/session/generate_sql.
func (h *SessionHandler) GenerateSQL(w http.ResponseWriter, r *http.Request) {
	var req GenerateSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	var sql string
	err := h.registry.WithSession(req.SessionID, func(session *models.Session) error {
		rendered, err := h.svc.GenerateSQL(r.Context(), session)
		if err != nil {
			return err
		}
		sql = rendered
		return nil
	})
	if err != nil {
		h.mapError(w, err)
		return
	}

	session, err := h.registry.Get(req.SessionID)
	if err != nil {
		h.mapError(w, err)
		return
	}
	h.writeSession(w, session, sql)
}

// ResolveConflict handles POST /api/session/resolve_conflict.
func (h *SessionHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	h.withSession(w, r, req.SessionID, func(session *models.Session) error {
		h.svc.ResolveConflict(session, req.OptionID)
		return nil
	})
}

// ExpertDecision handles POST /api/expert/decision.
func (h *SessionHandler) ExpertDecision(w http.ResponseWriter, r *http.Request) {
	var req ExpertDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	h.withSession(w, r, req.SessionID, func(session *models.Session) error {
		switch req.Action {
		case ExpertActionConfirm:
			return h.svc.ApplyExpertDecision(r.Context(), session, req.SpecID)
		case ExpertActionRevise:
			h.svc.Clarify(r.Context(), session, req.Answers)
			session.RouteExpert = false
			return nil
		case ExpertActionForward:
			session.ForwardedTo = req.ForwardTo
			return nil
		default:
			return apperrors.ErrUnknownAction
		}
	})
}

// withSession runs fn under the session lock and responds with the
// refreshed session payload.
func (h *SessionHandler) withSession(w http.ResponseWriter, r *http.Request, sessionID string, fn func(*models.Session) error) {
	if err := h.registry.WithSession(sessionID, fn); err != nil {
		h.mapError(w, err)
		return
	}

	session, err := h.registry.Get(sessionID)
	if err != nil {
		h.mapError(w, err)
		return
	}
	h.writeSession(w, session, "")
}

// mapError translates engine errors to HTTP status codes.
func (h *SessionHandler) mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, apperrors.ErrNoSpecSelected):
		h.writeError(w, http.StatusConflict, "no_spec_selected", err.Error())
	case errors.Is(err, apperrors.ErrSpecNotInSession):
		h.writeError(w, http.StatusBadRequest, "spec_not_in_session", err.Error())
	case errors.Is(err, apperrors.ErrUnknownAction):
		h.writeError(w, http.StatusBadRequest, "unknown_action", err.Error())
	default:
		h.logger.Error("Session operation failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, session *models.Session, sql string) {
	payload := h.payloads.Session(session, sql)
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: payload}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
