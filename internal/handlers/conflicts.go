package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/middleware"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/recurrence"
)

// conflictLookback covers candidates that started before the checked slot but
// may still overlap it. Instances are window-filtered on start time, so a
// candidate can only be missed if it runs longer than this.
const conflictLookback = 24 * time.Hour

// ConflictHandler answers ad-hoc "would this slot collide" queries.
type ConflictHandler struct {
	instanceRepo database.InstanceRepositoryInterface
}

// NewConflictHandler creates a new conflict handler.
func NewConflictHandler(instanceRepo database.InstanceRepositoryInterface) *ConflictHandler {
	return &ConflictHandler{instanceRepo: instanceRepo}
}

// ConflictRequest is a candidate time slot to check.
type ConflictRequest struct {
	StartTime time.Time  `json:"start_time" validate:"required"`
	EndTime   time.Time  `json:"end_time" validate:"required"`
	ExcludeID *uuid.UUID `json:"exclude_id,omitempty"`
}

// ConflictResponse lists the instances overlapping the requested slot.
type ConflictResponse struct {
	Conflicts []models.EventInstance `json:"conflicts"`
}

// CheckConflicts returns every materialized instance of the user strictly
// overlapping [start_time, end_time).
func (h *ConflictHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "start_time and end_time are required")
		return
	}
	if !req.EndTime.After(req.StartTime) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "end_time must be after start_time")
		return
	}

	candidates, err := h.instanceRepo.ListByUserWindow(r.Context(), user.ID, req.StartTime.Add(-conflictLookback), req.EndTime)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve instances")
		return
	}

	target := recurrence.ConflictTarget{
		Start:     req.StartTime,
		End:       req.EndTime,
		ExcludeID: req.ExcludeID,
	}
	conflicts := recurrence.FindConflicts(target, candidates)
	if conflicts == nil {
		conflicts = []models.EventInstance{}
	}

	respondJSON(w, http.StatusOK, ConflictResponse{Conflicts: conflicts})
}
