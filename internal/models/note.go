package models

import (
	"time"

	"github.com/google/uuid"
)

// Note is a rich-text study note. Content is the serialized rich markup
// (structured document JSON, or rendered HTML for legacy records); Highlights
// is the sidecar of user-authored highlight fields keyed by highlight id.
type Note struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.UUID          `json:"user_id"`
	Title      string             `json:"title"`
	Content    string             `json:"content"`
	Highlights []HighlightSidecar `json:"highlights,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
