package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/services"
)

// EvaluateRequest is the POST /api/pagelist/evaluate body.
type EvaluateRequest struct {
	Input        string   `json:"input"`
	CurrentTitle string   `json:"current_title,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	Protected    bool     `json:"protected,omitempty"`
}

// ListParametersResponse wraps the catalog.
type ListParametersResponse struct {
	Parameters []params.Descriptor `json:"parameters"`
}

// PageListHandler serves page list evaluation over HTTP.
type PageListHandler struct {
	service services.PageListService
	logger  *zap.Logger
}

// NewPageListHandler creates a new page list handler.
func NewPageListHandler(service services.PageListService, logger *zap.Logger) *PageListHandler {
	return &PageListHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the page list routes on the given router.
func (h *PageListHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/pagelist", func(r chi.Router) {
		r.Post("/evaluate", h.Evaluate)
		r.Get("/parameters", h.ListParameters)
		r.Get("/parameters/{name}", h.GetParameter)
	})
}

// Evaluate handles POST /api/pagelist/evaluate.
// Option problems are returned as diagnostics with status 200; only
// malformed requests fail.
func (h *PageListHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.service.Evaluate(r.Context(), &services.EvaluateRequest{
		Input:        req.Input,
		CurrentTitle: req.CurrentTitle,
		Permissions:  req.Permissions,
		Protected:    req.Protected,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidOption) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_option", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to evaluate page list", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "evaluation_failed", "Failed to evaluate page list"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: !result.HasCritical(), Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListParameters handles GET /api/pagelist/parameters.
func (h *PageListHandler) ListParameters(w http.ResponseWriter, r *http.Request) {
	defs := h.service.Parameters()
	data := ListParametersResponse{Parameters: make([]params.Descriptor, 0, len(defs))}
	for _, def := range defs {
		data.Parameters = append(data.Parameters, def.Describe())
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetParameter handles GET /api/pagelist/parameters/{name}.
func (h *PageListHandler) GetParameter(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "name"))
	for _, def := range h.service.Parameters() {
		if def.Name == name {
			if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: def.Describe()}); err != nil {
				h.logger.Error("Failed to write response", zap.Error(err))
			}
			return
		}
	}

	if err := ErrorResponse(w, http.StatusNotFound, "not_found", fmt.Sprintf("Unknown parameter %q", name)); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
