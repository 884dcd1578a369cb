package handlers

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/studydesk/api/internal/highlight"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/queue"
)

func newTestNoteHandler(noteRepo *mockNoteRepo, activityRepo *mockNoteActivityRepo, jobQueue *mockJobQueue) *NoteHandler {
	engine := highlight.NewEngine(models.DefaultCategories(), zap.NewNop())
	return NewNoteHandler(noteRepo, activityRepo, jobQueue, engine, 0, zap.NewNop())
}

func markedContent(id string, category models.Category, number int, text string) string {
	return fmt.Sprintf(`<mark data-highlight-id=%q data-highlight-category=%q data-highlight-number="%d">%s</mark>`,
		id, string(category), number, text)
}

func TestGetNote_RestoresHighlights(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Biology ch. 4",
		Content: "<p>intro</p>" + markedContent("hl-a", models.CategoryYellow, 1, "mitochondria"),
		Highlights: []models.HighlightSidecar{
			{ID: "hl-a", Commentary: "exam topic", IsExpanded: true},
		},
	}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "GET", "/api/v1/notes/"+note.ID.String(), nil)
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.GetNote(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp NoteResponse
	decodeData(t, w.Body.Bytes(), &resp)
	if len(resp.Highlights) != 1 {
		t.Fatalf("Expected 1 restored highlight, got %d", len(resp.Highlights))
	}
	got := resp.Highlights[0]
	if got.ID != "hl-a" || got.Text != "mitochondria" {
		t.Errorf("Unexpected highlight: %+v", got)
	}
	if got.Commentary != "exam topic" || !got.IsExpanded {
		t.Error("Expected sidecar fields to be merged into the restored highlight")
	}
}

func TestCreateNote_SchedulesReindex(t *testing.T) {
	t.Parallel()

	user := testUser()
	noteRepo := &mockNoteRepo{}
	activityRepo := &mockNoteActivityRepo{}
	jobQueue := &mockJobQueue{}
	h := newTestNoteHandler(noteRepo, activityRepo, jobQueue)

	req := authedRequest(user, "POST", "/api/v1/notes", CreateNoteRequest{
		Title:   "Lecture notes",
		Content: "<p>first draft</p>",
	})
	w := httptest.NewRecorder()
	h.CreateNote(w, req)

	if w.Code != 201 {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(activityRepo.touched) != 1 {
		t.Errorf("Expected the note to be touched once, got %d", len(activityRepo.touched))
	}
	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("Expected 1 reindex job, got %d", len(jobQueue.enqueued))
	}
	job := jobQueue.enqueued[0]
	if job.Type != queue.JobTypeNoteReindex {
		t.Errorf("Expected reindex job, got %s", job.Type)
	}
	if job.NotBefore == nil {
		t.Error("Expected the job to carry a debounce deadline")
	}
}

func TestUpdateNote_ReindexOnlyOnContentChange(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Old title",
		Content: "<p>body</p>",
	}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
	}
	jobQueue := &mockJobQueue{}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, jobQueue)

	// Title-only update does not trigger a reindex.
	title := "New title"
	req := authedRequest(user, "PATCH", "/api/v1/notes/"+note.ID.String(), UpdateNoteRequest{Title: &title})
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.UpdateNote(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(jobQueue.enqueued) != 0 {
		t.Errorf("Expected no reindex for a title-only update, got %d jobs", len(jobQueue.enqueued))
	}

	// A content change does.
	content := "<p>rewritten</p>"
	req = authedRequest(user, "PATCH", "/api/v1/notes/"+note.ID.String(), UpdateNoteRequest{Content: &content})
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w = httptest.NewRecorder()
	h.UpdateNote(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if len(jobQueue.enqueued) != 1 {
		t.Errorf("Expected 1 reindex job after a content change, got %d", len(jobQueue.enqueued))
	}
}

func TestUpdateHighlight_SidecarFields(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Chem notes",
		Content: markedContent("hl-a", models.CategoryGreen, 1, "catalyst"),
	}
	var updated *models.Note
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
		updateFunc: func(ctx context.Context, n *models.Note) error {
			updated = n
			return nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	commentary := "lowers activation energy"
	req := authedRequest(user, "PATCH", "/api/v1/notes/"+note.ID.String()+"/highlights/hl-a", UpdateHighlightRequest{
		Commentary: &commentary,
	})
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String(), "highlightID": "hl-a"})
	w := httptest.NewRecorder()
	h.UpdateHighlight(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if updated == nil {
		t.Fatal("Expected the note to be persisted")
	}
	if len(updated.Highlights) != 1 || updated.Highlights[0].Commentary != commentary {
		t.Errorf("Expected the sidecar entry to be upserted, got %+v", updated.Highlights)
	}

	var got models.Highlight
	decodeData(t, w.Body.Bytes(), &got)
	if got.Commentary != commentary {
		t.Errorf("Expected the response to carry the new commentary, got %q", got.Commentary)
	}
}

func TestUpdateHighlight_UnknownID(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Chem notes",
		Content: markedContent("hl-a", models.CategoryGreen, 1, "catalyst"),
	}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	commentary := "orphaned"
	req := authedRequest(user, "PATCH", "/api/v1/notes/"+note.ID.String()+"/highlights/hl-gone", UpdateHighlightRequest{
		Commentary: &commentary,
	})
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String(), "highlightID": "hl-gone"})
	w := httptest.NewRecorder()
	h.UpdateHighlight(w, req)

	if w.Code != 404 {
		t.Fatalf("Expected status 404 for a highlight absent from the content, got %d", w.Code)
	}
}

func TestCreateHighlight_WrapsText(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Physics notes",
		Content: "Newton's second law of motion " + markedContent("hl-a", models.CategoryYellow, 1, "inertia"),
	}
	var updated *models.Note
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
		updateFunc: func(ctx context.Context, n *models.Note) error {
			updated = n
			return nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "POST", "/api/v1/notes/"+note.ID.String()+"/highlights",
		CreateHighlightRequest{Category: "yellow", Text: "second law"})
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.CreateHighlight(w, req)

	if w.Code != 201 {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Highlight
	decodeData(t, w.Body.Bytes(), &created)
	if created.Category != models.CategoryYellow || created.Text != "second law" {
		t.Errorf("Unexpected highlight: %+v", created)
	}
	// hl-a already holds yellow number 1.
	if created.Number != 2 {
		t.Errorf("Expected number 2, got %d", created.Number)
	}

	if updated == nil {
		t.Fatal("Expected the note to be persisted")
	}
	if !strings.Contains(updated.Content, `data-highlight-id="`+created.ID+`"`) {
		t.Errorf("Expected the new mark in the content: %s", updated.Content)
	}
	if !strings.Contains(updated.Content, `data-highlight-id="hl-a"`) {
		t.Error("Expected the existing highlight to survive")
	}
}

func TestCreateHighlight_TextNotInContent(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{ID: uuid.New(), UserID: user.ID, Title: "Empty", Content: "nothing relevant"}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "POST", "/api/v1/notes/"+note.ID.String()+"/highlights",
		CreateHighlightRequest{Category: "red", Text: "missing phrase"})
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.CreateHighlight(w, req)

	if w.Code != 422 {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateHighlight_InvalidCategory(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{ID: uuid.New(), UserID: user.ID, Title: "Notes", Content: "some text"}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "POST", "/api/v1/notes/"+note.ID.String()+"/highlights",
		CreateHighlightRequest{Category: "magenta", Text: "some text"})
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.CreateHighlight(w, req)

	if w.Code != 400 {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateHighlight_UsesEnginePalette(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{ID: uuid.New(), UserID: user.ID, Title: "Notes", Content: "some text"}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
	}

	// The handler must allocate against the engine's configured palette, not
	// the default one. Yellow is a default category but absent here.
	engine := highlight.NewEngine(models.CategoryConfig{models.CategoryRed: "#ef4444"}, zap.NewNop())
	h := NewNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{}, engine, 0, zap.NewNop())

	req := authedRequest(user, "POST", "/api/v1/notes/"+note.ID.String()+"/highlights",
		CreateHighlightRequest{Category: "yellow", Text: "some text"})
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.CreateHighlight(w, req)

	if w.Code != 400 {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteHighlight_ResequencesAndPrunes(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:     uuid.New(),
		UserID: user.ID,
		Title:  "History notes",
		Content: markedContent("hl-a", models.CategoryYellow, 1, "first") +
			markedContent("hl-b", models.CategoryYellow, 2, "second") +
			markedContent("hl-c", models.CategoryYellow, 3, "third"),
		Highlights: []models.HighlightSidecar{
			{ID: "hl-a", Commentary: "keep"},
			{ID: "hl-b", Commentary: "doomed"},
		},
	}
	var updated *models.Note
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
		updateFunc: func(ctx context.Context, n *models.Note) error {
			updated = n
			return nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "DELETE", "/api/v1/notes/"+note.ID.String()+"/highlights/hl-b", nil)
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String(), "highlightID": "hl-b"})
	w := httptest.NewRecorder()
	h.DeleteHighlight(w, req)

	if w.Code != 204 {
		t.Fatalf("Expected status 204, got %d: %s", w.Code, w.Body.String())
	}
	if updated == nil {
		t.Fatal("Expected the note to be persisted")
	}

	if strings.Contains(updated.Content, "hl-b") {
		t.Error("Expected the deleted highlight's mark to be stripped from the content")
	}
	if !strings.Contains(updated.Content, "second") {
		t.Error("Expected the underlying text to survive mark removal")
	}
	// hl-c moves from number 3 to 2.
	if !strings.Contains(updated.Content, `data-highlight-id="hl-c" data-highlight-category="yellow" data-highlight-number="2"`) {
		t.Errorf("Expected hl-c to be renumbered to 2, content: %s", updated.Content)
	}

	for _, s := range updated.Highlights {
		if s.ID == "hl-b" {
			t.Error("Expected the dead sidecar entry to be pruned")
		}
	}
}

func TestDeleteHighlight_UnknownIDNoOp(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "History notes",
		Content: markedContent("hl-a", models.CategoryYellow, 1, "only"),
	}
	updateCalls := 0
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
		updateFunc: func(ctx context.Context, n *models.Note) error {
			updateCalls++
			return nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "DELETE", "/api/v1/notes/"+note.ID.String()+"/highlights/hl-missing", nil)
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String(), "highlightID": "hl-missing"})
	w := httptest.NewRecorder()
	h.DeleteHighlight(w, req)

	if w.Code != 204 {
		t.Fatalf("Expected status 204 for an unknown id, got %d", w.Code)
	}
	if updateCalls != 0 {
		t.Error("Expected no persistence for a no-op removal")
	}
}

func TestRemoveHighlightsByText_LooseMatch(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:     uuid.New(),
		UserID: user.ID,
		Title:  "Physics notes",
		Content: markedContent("hl-a", models.CategoryRed, 1, "Newton's second law") +
			markedContent("hl-b", models.CategoryRed, 2, "conservation of momentum"),
	}
	var updated *models.Note
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
		updateFunc: func(ctx context.Context, n *models.Note) error {
			updated = n
			return nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "DELETE", "/api/v1/notes/"+note.ID.String()+"/highlights?match_text=second+law", nil)
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.RemoveHighlightsByText(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp RemoveHighlightsByTextResponse
	decodeData(t, w.Body.Bytes(), &resp)
	if len(resp.Removed) != 1 || resp.Removed[0].ID != "hl-a" {
		t.Fatalf("Expected hl-a to be removed by substring match, got %+v", resp.Removed)
	}
	if updated == nil || strings.Contains(updated.Content, "hl-a") {
		t.Error("Expected the matched highlight's mark to be stripped")
	}
	// The surviving red highlight compacts to number 1.
	if !strings.Contains(updated.Content, `data-highlight-number="1"`) {
		t.Errorf("Expected the surviving highlight to be renumbered, content: %s", updated.Content)
	}
}

func TestRemoveHighlightsByText_RequiresMatchText(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Physics notes",
		Content: "<p>plain</p>",
	}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "DELETE", "/api/v1/notes/"+note.ID.String()+"/highlights", nil)
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.RemoveHighlightsByText(w, req)

	if w.Code != 400 {
		t.Fatalf("Expected status 400 without match_text, got %d", w.Code)
	}
}

func TestDeleteNote_CleansActivity(t *testing.T) {
	t.Parallel()

	user := testUser()
	note := &models.Note{
		ID:     uuid.New(),
		UserID: user.ID,
		Title:  "Scratch",
	}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return note, nil
		},
	}
	activityRepo := &mockNoteActivityRepo{}
	h := newTestNoteHandler(noteRepo, activityRepo, &mockJobQueue{})

	req := authedRequest(user, "DELETE", "/api/v1/notes/"+note.ID.String(), nil)
	req = mux.SetURLVars(req, map[string]string{"id": note.ID.String()})
	w := httptest.NewRecorder()
	h.DeleteNote(w, req)

	if w.Code != 204 {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	if len(activityRepo.deleted) != 1 || activityRepo.deleted[0] != note.ID {
		t.Error("Expected the activity row to be deleted with the note")
	}
}

func TestGetNote_Ownership(t *testing.T) {
	t.Parallel()

	user := testUser()
	foreign := &models.Note{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Title:  "Not yours",
	}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return foreign, nil
		},
	}
	h := newTestNoteHandler(noteRepo, &mockNoteActivityRepo{}, &mockJobQueue{})

	req := authedRequest(user, "GET", "/api/v1/notes/"+foreign.ID.String(), nil)
	req = mux.SetURLVars(req, map[string]string{"id": foreign.ID.String()})
	w := httptest.NewRecorder()
	h.GetNote(w, req)

	if w.Code != 403 {
		t.Fatalf("Expected status 403, got %d", w.Code)
	}
}
