package handlers

import (
	"net/http"
	"time"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/middleware"
	"github.com/studydesk/api/internal/models"
)

// MaxInstanceWindow bounds a single instance query so a client cannot ask for
// years of rows in one request.
const MaxInstanceWindow = 366 * 24 * time.Hour

// InstanceHandler serves the materialized instance rows for calendar views.
type InstanceHandler struct {
	instanceRepo database.InstanceRepositoryInterface
}

// NewInstanceHandler creates a new instance handler.
func NewInstanceHandler(instanceRepo database.InstanceRepositoryInterface) *InstanceHandler {
	return &InstanceHandler{instanceRepo: instanceRepo}
}

// ListInstances returns the user's instances whose start falls inside the
// requested window. start and end are required RFC 3339 timestamps.
func (h *InstanceHandler) ListInstances(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "start must be an RFC 3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "end must be an RFC 3339 timestamp")
		return
	}
	if end.Before(start) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "end must not be before start")
		return
	}
	if end.Sub(start) > MaxInstanceWindow {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "window exceeds the one-year maximum")
		return
	}

	instances, err := h.instanceRepo.ListByUserWindow(r.Context(), user.ID, start, end)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve instances")
		return
	}
	if instances == nil {
		instances = []models.EventInstance{}
	}

	respondJSON(w, http.StatusOK, instances)
}
