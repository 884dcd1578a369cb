package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/highlight"
	"github.com/studydesk/api/internal/middleware"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/queue"
	"github.com/studydesk/api/internal/validation"
)

// NoteHandler handles note requests and the highlights subresource. Highlight
// text, category and number live in the serialized content; the handler only
// ever returns them in restored form.
type NoteHandler struct {
	noteRepo     database.NoteRepositoryInterface
	activityRepo database.NoteActivityRepositoryInterface
	jobQueue     queue.JobQueue
	engine       *highlight.Engine
	debounce     time.Duration
	logger       *zap.Logger
}

// NewNoteHandler creates a new note handler. debounce is how long a note must
// sit idle after an edit before its reindex job runs.
func NewNoteHandler(
	noteRepo database.NoteRepositoryInterface,
	activityRepo database.NoteActivityRepositoryInterface,
	jobQueue queue.JobQueue,
	engine *highlight.Engine,
	debounce time.Duration,
	logger *zap.Logger,
) *NoteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteHandler{
		noteRepo:     noteRepo,
		activityRepo: activityRepo,
		jobQueue:     jobQueue,
		engine:       engine,
		debounce:     debounce,
		logger:       logger,
	}
}

// RegisterRoutes registers note routes on the given router
// The router should already have the /notes prefix
func (h *NoteHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListNotes).Methods("GET")
	r.HandleFunc("", h.CreateNote).Methods("POST")
	r.HandleFunc("/{id}", h.GetNote).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateNote).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteNote).Methods("DELETE")
	r.HandleFunc("/{id}/highlights", h.ListHighlights).Methods("GET")
	r.HandleFunc("/{id}/highlights", h.CreateHighlight).Methods("POST")
	r.HandleFunc("/{id}/highlights", h.RemoveHighlightsByText).Methods("DELETE")
	r.HandleFunc("/{id}/highlights/{highlightID}", h.UpdateHighlight).Methods("PATCH")
	r.HandleFunc("/{id}/highlights/{highlightID}", h.DeleteHighlight).Methods("DELETE")
}

// CreateNoteRequest represents a create note request
type CreateNoteRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=500"`
	Content string `json:"content" validate:"max=1000000"`
}

// UpdateNoteRequest represents an update note request
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// NoteResponse is a note together with its restored highlights.
type NoteResponse struct {
	Note       *models.Note       `json:"note"`
	Highlights []models.Highlight `json:"highlights"`
}

// UpdateHighlightRequest carries the sidecar fields a client may change on an
// existing highlight. Text and category are derived from content and cannot be
// patched directly.
type UpdateHighlightRequest struct {
	Commentary *string `json:"commentary,omitempty"`
	IsExpanded *bool   `json:"is_expanded,omitempty"`
}

// CreateHighlightRequest asks for the first un-highlighted occurrence of text
// in the note to be wrapped as a new highlight.
type CreateHighlightRequest struct {
	Category string `json:"category" validate:"required,highlight_category"`
	Text     string `json:"text" validate:"required,min=1,max=10000"`
}

// ListNotes lists the user's notes without restored highlights; restoration is
// per-note on GET.
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	notes, err := h.noteRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve notes")
		return
	}
	if notes == nil {
		notes = []*models.Note{}
	}

	respondJSON(w, http.StatusOK, notes)
}

// CreateNote creates a new note and schedules its first reindex.
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateNoteRequest
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

	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   validation.SanitizeText(req.Title),
		Content: req.Content,
	}
	if note.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	if err := h.noteRepo.Create(r.Context(), note); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create note")
		return
	}

	h.scheduleReindex(r, note)

	respondJSON(w, http.StatusCreated, NoteResponse{
		Note:       note,
		Highlights: h.restore(note),
	})
}

// GetNote retrieves a note with its restored highlights.
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, NoteResponse{
		Note:       note,
		Highlights: h.restore(note),
	})
}

// UpdateNote updates a note's title and/or content. A content change marks the
// note active so the reindex worker will compact its highlight numbering once
// the note goes idle.
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateNoteRequest
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
		note.Title = title
	}
	contentChanged := false
	if req.Content != nil && *req.Content != note.Content {
		note.Content = *req.Content
		contentChanged = true
	}

	if err := h.noteRepo.Update(r.Context(), note); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update note")
		return
	}

	if contentChanged {
		h.scheduleReindex(r, note)
	}

	respondJSON(w, http.StatusOK, NoteResponse{
		Note:       note,
		Highlights: h.restore(note),
	})
}

// DeleteNote deletes a note and its activity tracking row.
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.noteRepo.Delete(r.Context(), note.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete note")
		return
	}
	if err := h.activityRepo.DeleteByNote(r.Context(), note.ID); err != nil {
		h.logger.Warn("note_activity_cleanup_failed",
			zap.String("note_id", note.ID.String()),
			zap.Error(err),
		)
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListHighlights returns the note's restored highlights.
func (h *NoteHandler) ListHighlights(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, h.restore(note))
}

// CreateHighlight allocates the category's next display number and wraps the
// first un-highlighted occurrence of the requested text in the note content.
// Text absent from the content is a 422: a highlight that is not embedded in
// the markup would vanish on the next restore.
func (h *NoteHandler) CreateHighlight(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	var req CreateHighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request")
		return
	}

	set := highlight.NewSet(h.engine.Categories(), h.restore(note))
	added, err := set.Add(models.Category(req.Category), req.Text)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	content, err := highlight.WrapFirst(note.Content, added)
	if err != nil {
		if errors.Is(err, highlight.ErrTextNotFound) {
			respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "Text does not occur unhighlighted in the note content")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update note")
		return
	}
	note.Content = content

	if err := h.noteRepo.Update(r.Context(), note); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update note")
		return
	}

	respondJSON(w, http.StatusCreated, added)
}

// UpdateHighlight patches the sidecar fields of one highlight. The highlight
// must exist in the restored set; commentary on a dead id would be silently
// unreachable.
func (h *NoteHandler) UpdateHighlight(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}
	highlightID := mux.Vars(r)["highlightID"]

	var req UpdateHighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	restored := h.restore(note)
	var target *models.Highlight
	for i := range restored {
		if restored[i].ID == highlightID {
			target = &restored[i]
			break
		}
	}
	if target == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Highlight not found")
		return
	}

	entry := upsertSidecar(note, highlightID)
	if req.Commentary != nil {
		entry.Commentary = validation.SanitizeText(*req.Commentary)
	}
	if req.IsExpanded != nil {
		entry.IsExpanded = *req.IsExpanded
	}
	target.Commentary = entry.Commentary
	target.IsExpanded = entry.IsExpanded

	if err := h.noteRepo.Update(r.Context(), note); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update note")
		return
	}

	respondJSON(w, http.StatusOK, target)
}

// DeleteHighlight removes one highlight by id: its marks are dropped from the
// content, the category is resequenced, and the sidecar entry is pruned. An id
// absent from the restored set is a no-op 204.
func (h *NoteHandler) DeleteHighlight(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}
	highlightID := mux.Vars(r)["highlightID"]

	set := highlight.NewSet(h.engine.Categories(), h.restore(note))
	removed, _ := set.Remove(highlightID)
	if removed == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.persistRemoval(r, note, set, []string{removed.ID}); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveHighlightsByTextResponse reports which highlights a text-match removal
// actually deleted.
type RemoveHighlightsByTextResponse struct {
	Removed []models.Highlight `json:"removed"`
}

// RemoveHighlightsByText removes every highlight whose text matches the
// match_text query parameter. Matching is loose unless exact=true.
func (h *NoteHandler) RemoveHighlightsByText(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	matchText := r.URL.Query().Get("match_text")
	if matchText == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "match_text query parameter is required")
		return
	}
	exact := false
	if e := r.URL.Query().Get("exact"); e != "" {
		parsed, err := strconv.ParseBool(e)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "exact must be a boolean")
			return
		}
		exact = parsed
	}

	set := highlight.NewSet(h.engine.Categories(), h.restore(note))
	removed, _ := set.RemoveByText(matchText, exact)
	if len(removed) == 0 {
		respondJSON(w, http.StatusOK, RemoveHighlightsByTextResponse{Removed: []models.Highlight{}})
		return
	}

	removedIDs := make([]string, len(removed))
	for i, rm := range removed {
		removedIDs[i] = rm.ID
	}
	if err := h.persistRemoval(r, note, set, removedIDs); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update note")
		return
	}

	respondJSON(w, http.StatusOK, RemoveHighlightsByTextResponse{Removed: removed})
}

func (h *NoteHandler) restore(note *models.Note) []models.Highlight {
	highlights := h.engine.Restore(note.Content, note.Highlights)
	if highlights == nil {
		highlights = []models.Highlight{}
	}
	return highlights
}

// persistRemoval pushes a removal made on the working set back into the note:
// the removed ids' marks are stripped, survivors are renumbered per the set,
// and dead sidecar entries are pruned.
func (h *NoteHandler) persistRemoval(r *http.Request, note *models.Note, set *highlight.Set, removedIDs []string) error {
	note.Content = highlight.StripMarks(note.Content, removedIDs)
	note.Content = highlight.ApplyNumbers(note.Content, set.NumbersByID())

	dead := make(map[string]struct{}, len(removedIDs))
	for _, id := range removedIDs {
		dead[id] = struct{}{}
	}
	kept := note.Highlights[:0]
	for _, s := range note.Highlights {
		if _, gone := dead[s.ID]; !gone {
			kept = append(kept, s)
		}
	}
	note.Highlights = kept

	return h.noteRepo.Update(r.Context(), note)
}

// scheduleReindex records edit activity and enqueues a debounced reindex job.
// Both are best-effort: the note write already succeeded, and the idle-scan
// scheduler will pick up anything a failed enqueue missed.
func (h *NoteHandler) scheduleReindex(r *http.Request, note *models.Note) {
	if err := h.activityRepo.TouchNote(r.Context(), note.ID); err != nil {
		h.logger.Warn("note_activity_touch_failed",
			zap.String("note_id", note.ID.String()),
			zap.Error(err),
		)
	}
	notBefore := time.Now().Add(h.debounce)
	job := queue.NewReindexJob(note.UserID, note.ID, &notBefore)
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		h.logger.Warn("reindex_enqueue_failed",
			zap.String("note_id", note.ID.String()),
			zap.Error(err),
		)
	}
}

// upsertSidecar returns a pointer to the note's sidecar entry for the id,
// creating it if absent.
func upsertSidecar(note *models.Note, id string) *models.HighlightSidecar {
	for i := range note.Highlights {
		if note.Highlights[i].ID == id {
			return &note.Highlights[i]
		}
	}
	note.Highlights = append(note.Highlights, models.HighlightSidecar{ID: id})
	return &note.Highlights[len(note.Highlights)-1]
}

func (h *NoteHandler) loadOwnedNote(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Note, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid note ID")
		return nil, false
	}

	note, err := h.noteRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Note not found")
		return nil, false
	}
	if note.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Note does not belong to user")
		return nil, false
	}
	return note, true
}
