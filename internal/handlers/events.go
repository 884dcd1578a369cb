package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/middleware"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/queue"
	"github.com/studydesk/api/internal/recurrence"
	"github.com/studydesk/api/internal/validation"
)

const (
	// MaxEventTitleLength is the maximum length for event titles
	MaxEventTitleLength = 500
	// MaxDescriptionLength is the maximum length for free-text fields
	MaxDescriptionLength = 10000
)

// EventHandler handles schedule event requests. Writes persist the anchor and
// enqueue an expansion job; the response carries a synchronously computed
// preview of the expanded instances and their conflicts so clients see the
// outcome without waiting for the worker.
type EventHandler struct {
	eventRepo    database.EventRepositoryInterface
	instanceRepo database.InstanceRepositoryInterface
	jobQueue     queue.JobQueue
	horizon      time.Duration
}

// NewEventHandler creates a new event handler.
func NewEventHandler(
	eventRepo database.EventRepositoryInterface,
	instanceRepo database.InstanceRepositoryInterface,
	jobQueue queue.JobQueue,
	horizon time.Duration,
) *EventHandler {
	return &EventHandler{
		eventRepo:    eventRepo,
		instanceRepo: instanceRepo,
		jobQueue:     jobQueue,
		horizon:      horizon,
	}
}

// RegisterRoutes registers event routes on the given router
// The router should already have the /events prefix
func (h *EventHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListEvents).Methods("GET")
	r.HandleFunc("", h.CreateEvent).Methods("POST")
	r.HandleFunc("/{id}", h.GetEvent).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateEvent).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteEvent).Methods("DELETE")
}

// CreateEventRequest represents a create event request
type CreateEventRequest struct {
	Title       string                 `json:"title" validate:"required,min=1,max=500"`
	Description string                 `json:"description" validate:"max=10000"`
	Location    string                 `json:"location" validate:"max=500"`
	StartTime   time.Time              `json:"start_time" validate:"required"`
	EndTime     time.Time              `json:"end_time" validate:"required"`
	Timezone    string                 `json:"timezone" validate:"required,timezone"`
	AllDay      bool                   `json:"all_day"`
	Recurrence  *models.RecurrenceRule `json:"recurrence,omitempty"`
}

// UpdateEventRequest represents an update event request
type UpdateEventRequest struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Location    *string                `json:"location,omitempty"`
	StartTime   *time.Time             `json:"start_time,omitempty"`
	EndTime     *time.Time             `json:"end_time,omitempty"`
	Timezone    *string                `json:"timezone,omitempty"`
	AllDay      *bool                  `json:"all_day,omitempty"`
	Recurrence  *models.RecurrenceRule `json:"recurrence,omitempty"`
}

// EventResponse pairs the persisted anchor with its expansion preview.
type EventResponse struct {
	Event     *models.ScheduleEvent  `json:"event"`
	Instances []models.EventInstance `json:"instances"`
	Conflicts []models.EventInstance `json:"conflicts"`
	Truncated bool                   `json:"truncated,omitempty"`
}

// ListEvents lists the authenticated user's schedule events (anchors).
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	events, err := h.eventRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

// CreateEvent creates a schedule event, previews its expansion, and reports
// conflicts against the user's existing instances.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	if !req.EndTime.After(req.StartTime) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "end_time must be after start_time")
		return
	}

	// Legacy clients embed the rule in the description text instead of the
	// structured field; an explicit structured rule wins.
	rule := req.Recurrence
	if rule == nil {
		if extracted, ok := recurrence.ExtractRule(req.Description); ok {
			rule = &extracted
		}
	}
	description := recurrence.StripMarker(validation.SanitizeText(req.Description))

	if rule != nil {
		result := recurrence.Validate(*rule, req.StartTime, req.Timezone)
		if !result.Valid {
			respondRuleErrors(w, result.Errors)
			return
		}
	}

	event := &models.ScheduleEvent{
		ID:          uuid.New(),
		UserID:      user.ID,
		Title:       validation.SanitizeText(req.Title),
		Description: description,
		Location:    validation.SanitizeText(req.Location),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Timezone:    req.Timezone,
		AllDay:      req.AllDay,
		Recurrence:  rule,
	}

	ctx := r.Context()
	if err := h.eventRepo.Create(ctx, event); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create event")
		return
	}

	h.enqueueExpansion(r, user.ID, event.ID)

	resp := h.preview(r, event, nil)
	respondJSON(w, http.StatusCreated, resp)
}

// GetEvent retrieves an event by ID.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	event, ok := h.loadOwnedEvent(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// UpdateEvent updates an event and re-previews its expansion.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	event, ok := h.loadOwnedEvent(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" || len(title) > MaxEventTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid title")
			return
		}
		event.Title = title
	}
	if req.Description != nil {
		desc := validation.SanitizeText(*req.Description)
		if len(desc) > MaxDescriptionLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Description exceeds maximum length of %d characters", MaxDescriptionLength))
			return
		}
		// Marker recovery applies on update too: a legacy description
		// rewrite can introduce or replace the rule.
		if req.Recurrence == nil {
			if extracted, ok := recurrence.ExtractRule(desc); ok {
				req.Recurrence = &extracted
			}
		}
		event.Description = recurrence.StripMarker(desc)
	}
	if req.Location != nil {
		event.Location = validation.SanitizeText(*req.Location)
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}
	if !event.EndTime.After(event.StartTime) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "end_time must be after start_time")
		return
	}
	if req.Timezone != nil {
		if err := validation.ValidateTimezone(*req.Timezone); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		event.Timezone = *req.Timezone
	}
	if req.AllDay != nil {
		event.AllDay = *req.AllDay
	}
	if req.Recurrence != nil {
		if req.Recurrence.IsZero() {
			// An explicit empty rule clears the recurrence.
			event.Recurrence = nil
		} else {
			event.Recurrence = req.Recurrence
		}
	}

	if event.Recurrence != nil {
		result := recurrence.Validate(*event.Recurrence, event.StartTime, event.Timezone)
		if !result.Valid {
			respondRuleErrors(w, result.Errors)
			return
		}
	}

	ctx := r.Context()
	if err := h.eventRepo.Update(ctx, event); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update event")
		return
	}

	h.enqueueExpansion(r, user.ID, event.ID)

	resp := h.preview(r, event, &event.ID)
	respondJSON(w, http.StatusOK, resp)
}

// DeleteEvent deletes an event and its derived instances.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	event, ok := h.loadOwnedEvent(w, r, user.ID)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.eventRepo.Delete(ctx, event.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete event")
		return
	}
	if err := h.instanceRepo.DeleteByAnchor(ctx, event.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete event instances")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadOwnedEvent resolves the {id} path variable to an event owned by userID,
// writing the error response itself when that fails.
func (h *EventHandler) loadOwnedEvent(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.ScheduleEvent, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid event ID")
		return nil, false
	}

	event, err := h.eventRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Event not found")
		return nil, false
	}
	if event.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Event does not belong to user")
		return nil, false
	}
	return event, true
}

// preview expands the event inside its materialization window and collects
// conflicts against the user's already-materialized instances. excludeAnchor
// removes an edited event's own stale rows from the conflict candidates.
func (h *EventHandler) preview(r *http.Request, event *models.ScheduleEvent, excludeAnchor *uuid.UUID) EventResponse {
	window := recurrence.Window{
		Start: event.StartTime,
		End:   time.Now().Add(h.horizon),
	}

	var instances []models.EventInstance
	truncated := false
	if event.Recurrence != nil && !event.Recurrence.IsZero() {
		res := recurrence.Expand(event, *event.Recurrence, window)
		instances = res.Instances
		truncated = res.Truncated
	} else {
		instances = []models.EventInstance{recurrence.PrimaryInstance(event)}
	}

	resp := EventResponse{Event: event, Instances: instances, Conflicts: []models.EventInstance{}, Truncated: truncated}

	existing, err := h.instanceRepo.ListByUserWindow(r.Context(), event.UserID, window.Start, window.End)
	if err != nil {
		// Conflict detection is advisory on writes; the event itself is
		// already persisted.
		return resp
	}

	candidates := existing[:0:0]
	for _, c := range existing {
		if excludeAnchor != nil && c.AnchorID == *excludeAnchor {
			continue
		}
		candidates = append(candidates, c)
	}

	seen := make(map[uuid.UUID]struct{})
	for _, inst := range instances {
		for _, c := range recurrence.FindConflicts(recurrence.ConflictTarget{Start: inst.StartTime, End: inst.EndTime}, candidates) {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			resp.Conflicts = append(resp.Conflicts, c)
		}
	}
	return resp
}

func (h *EventHandler) enqueueExpansion(r *http.Request, userID, anchorID uuid.UUID) {
	if h.jobQueue == nil {
		return
	}
	// Expansion failures surface through the worker's retry path; the write
	// itself already succeeded.
	_ = h.jobQueue.Enqueue(r.Context(), queue.NewExpansionJob(userID, anchorID))
}

// respondRuleErrors reports recurrence rule violations as a 422 with the full
// error list, so clients can surface every problem at once.
func respondRuleErrors(w http.ResponseWriter, errs []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)

	response := map[string]any{
		"success":   false,
		"error":     "Unprocessable Entity",
		"message":   "Invalid recurrence rule",
		"errors":    errs,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
