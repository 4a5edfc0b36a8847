package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/repositories"
)

// CatalogListResponse for GET /api/catalog/specs.
type CatalogListResponse struct {
	Specs []SpecSummary `json:"specs"`
	Total int           `json:"total"`
}

// CatalogHandler handles governed catalog HTTP requests.
type CatalogHandler struct {
	catalog  repositories.CatalogRepository
	payloads *PayloadBuilder
	logger   *zap.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(catalog repositories.CatalogRepository, payloads *PayloadBuilder, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, payloads: payloads, logger: logger}
}

// RegisterRoutes registers the catalog handler's routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/catalog/specs", h.List)
	mux.HandleFunc("POST /api/catalog/specs", h.Create)
	mux.HandleFunc("POST /api/catalog/specs/{sid}/promote", h.Promote)
}

// List handles GET /api/catalog/specs.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	specs, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list catalog specs", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "list_specs_failed", err.Error())
		return
	}

	summaries := make([]SpecSummary, 0, len(specs))
	for _, spec := range specs {
		summaries = append(summaries, h.payloads.SummarizeSpec(spec, nil))
	}
	response := CatalogListResponse{Specs: summaries, Total: len(summaries)}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/catalog/specs. New specs land in the cold
// pool as drafts of record; promotion is a separate governed step.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var spec models.MetricSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.catalog.Insert(r.Context(), repositories.PoolCold, &spec); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidSpec):
			h.writeError(w, http.StatusBadRequest, "invalid_spec", err.Error())
		case errors.Is(err, apperrors.ErrSpecExists):
			h.writeError(w, http.StatusConflict, "spec_exists", err.Error())
		default:
			h.logger.Error("Failed to insert spec",
				zap.String("spec_id", spec.SpecID),
				zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "insert_spec_failed", err.Error())
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: h.payloads.SummarizeSpec(&spec, nil)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Promote handles POST /api/catalog/specs/{sid}/promote.
func (h *CatalogHandler) Promote(w http.ResponseWriter, r *http.Request) {
	specID := r.PathValue("sid")

	if err := h.catalog.Promote(r.Context(), specID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "spec_not_found", err.Error())
			return
		}
		h.logger.Error("Failed to promote spec",
			zap.String("spec_id", specID),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "promote_spec_failed", err.Error())
		return
	}

	spec, err := h.catalog.Get(r.Context(), specID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "get_spec_failed", err.Error())
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.payloads.SummarizeSpec(spec, nil)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *CatalogHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
