package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/middleware"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/validation"
)

const (
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 50
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 100
)

// AssignmentHandler handles assignment requests.
type AssignmentHandler struct {
	assignmentRepo database.AssignmentRepositoryInterface
}

// NewAssignmentHandler creates a new assignment handler.
func NewAssignmentHandler(assignmentRepo database.AssignmentRepositoryInterface) *AssignmentHandler {
	return &AssignmentHandler{assignmentRepo: assignmentRepo}
}

// RegisterRoutes registers assignment routes on the given router
// The router should already have the /assignments prefix
func (h *AssignmentHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListAssignments).Methods("GET")
	r.HandleFunc("", h.CreateAssignment).Methods("POST")
	r.HandleFunc("/{id}", h.GetAssignment).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateAssignment).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteAssignment).Methods("DELETE")
}

// CreateAssignmentRequest represents a create assignment request
type CreateAssignmentRequest struct {
	Title      string     `json:"title" validate:"required,min=1,max=500"`
	CourseName string     `json:"course_name" validate:"max=200"`
	Notes      string     `json:"notes" validate:"max=10000"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Priority   string     `json:"priority" validate:"omitempty,assignment_priority"`
}

// UpdateAssignmentRequest represents an update assignment request
type UpdateAssignmentRequest struct {
	Title      *string    `json:"title,omitempty"`
	CourseName *string    `json:"course_name,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	ClearDue   bool       `json:"clear_due_date,omitempty"`
	Status     *string    `json:"status,omitempty"`
	Priority   *string    `json:"priority,omitempty"`
}

// ListAssignmentsResponse represents the paginated response for listing assignments
type ListAssignmentsResponse struct {
	Assignments []*models.Assignment `json:"assignments"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	Total       int                  `json:"total"`
	TotalPages  int                  `json:"total_pages"`
}

// ListAssignments lists assignments for the authenticated user with pagination
func (h *AssignmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize := DefaultPageSize
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = min(parsed, MaxPageSize)
		}
	}

	var status *models.AssignmentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateAssignmentStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		sEnum := models.AssignmentStatus(s)
		status = &sEnum
	}

	assignments, total, err := h.assignmentRepo.GetByUserIDPaginated(r.Context(), user.ID, status, page, pageSize)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve assignments")
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListAssignmentsResponse{
		Assignments: assignments,
		Page:        page,
		PageSize:    pageSize,
		Total:       total,
		TotalPages:  totalPages,
	})
}

// CreateAssignment creates a new assignment
func (h *AssignmentHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateAssignmentRequest
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

	priority := models.AssignmentPriorityMedium
	if req.Priority != "" {
		priority = models.AssignmentPriority(req.Priority)
	}

	assignment := &models.Assignment{
		ID:         uuid.New(),
		UserID:     user.ID,
		Title:      validation.SanitizeText(req.Title),
		CourseName: validation.SanitizeText(req.CourseName),
		Notes:      validation.SanitizeText(req.Notes),
		DueDate:    req.DueDate,
		Status:     models.AssignmentStatusPending,
		Priority:   priority,
	}
	if assignment.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	if err := h.assignmentRepo.Create(r.Context(), assignment); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create assignment")
		return
	}

	respondJSON(w, http.StatusCreated, assignment)
}

// GetAssignment retrieves an assignment by ID
func (h *AssignmentHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	assignment, ok := h.loadOwnedAssignment(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, assignment)
}

// UpdateAssignment updates an existing assignment
func (h *AssignmentHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	assignment, ok := h.loadOwnedAssignment(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateAssignmentRequest
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
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		assignment.Title = title
	}
	if req.CourseName != nil {
		assignment.CourseName = validation.SanitizeText(*req.CourseName)
	}
	if req.Notes != nil {
		assignment.Notes = validation.SanitizeText(*req.Notes)
	}
	if req.DueDate != nil {
		assignment.DueDate = req.DueDate
	} else if req.ClearDue {
		assignment.DueDate = nil
	}
	if req.Status != nil {
		if err := validation.ValidateAssignmentStatus(*req.Status); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		assignment.Status = models.AssignmentStatus(*req.Status)
	}
	if req.Priority != nil {
		if err := validation.ValidateAssignmentPriority(*req.Priority); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		assignment.Priority = models.AssignmentPriority(*req.Priority)
	}

	if err := h.assignmentRepo.Update(r.Context(), assignment); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update assignment")
		return
	}

	respondJSON(w, http.StatusOK, assignment)
}

// DeleteAssignment deletes an assignment
func (h *AssignmentHandler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	assignment, ok := h.loadOwnedAssignment(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.assignmentRepo.Delete(r.Context(), assignment.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete assignment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AssignmentHandler) loadOwnedAssignment(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Assignment, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid assignment ID")
		return nil, false
	}

	assignment, err := h.assignmentRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Assignment not found")
		return nil, false
	}
	if assignment.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Assignment does not belong to user")
		return nil, false
	}
	return assignment, true
}
