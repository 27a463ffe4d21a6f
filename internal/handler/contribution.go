package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sheherjaano/backend/internal/auth"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/service"
)

// ContributionHandler serves the contributor dashboard and the deletion
// endpoint.
type ContributionHandler struct {
	contributions *service.ContributionService
	logger        *slog.Logger
}

// NewContributionHandler creates a ContributionHandler.
func NewContributionHandler(contributions *service.ContributionService, logger *slog.Logger) *ContributionHandler {
	return &ContributionHandler{contributions: contributions, logger: logger}
}

// HandleDashboard lists everything the caller owns across all six
// collections, newest first.
//
// HTTP: GET /api/contributions
// Auth: Required
func (h *ContributionHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	dashboard, err := h.contributions.Dashboard(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"dashboard": dashboard,
	})
}

// HandleDelete removes one owned item.
//
// HTTP: DELETE /api/contributions/{id}?model=famousSpot&isContribution=false
// Auth: Required — and the caller must own the item.
//
// The query parameters echo what the dashboard handed out: isContribution
// picks the collection family, and model names the place kind when deleting
// a master record (it is ignored for contributions, which know their own
// kind).
func (h *ContributionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	itemID := chi.URLParam(r, "id")
	isContribution := r.URL.Query().Get("isContribution") == "true"
	kind := model.Kind(r.URL.Query().Get("model"))

	result, err := h.contributions.Delete(r.Context(), id.UserID, kind, itemID, isContribution)
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]any{
		"success":    true,
		"message":    "deleted",
		"id":         itemID,
		"totalItems": result.TotalItems,
	}
	if result.NewRole != "" {
		body["newRole"] = result.NewRole
	}

	writeJSON(w, http.StatusOK, body)
}
