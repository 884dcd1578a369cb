package models

import (
	"time"

	"github.com/google/uuid"
)

// Frequency represents how often a recurring event repeats
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// EndConditionType represents how a recurring series terminates
type EndConditionType string

const (
	EndConditionNever      EndConditionType = "never"
	EndConditionAfterCount EndConditionType = "after_count"
	EndConditionOnDate     EndConditionType = "on_date"
)

// EndCondition describes when a recurring series stops producing occurrences.
// Count is used when Type is after_count; Date (YYYY-MM-DD, interpreted in the
// anchor's timezone) when Type is on_date.
type EndCondition struct {
	Type  EndConditionType `json:"type"`
	Count int              `json:"count,omitempty"`
	Date  string           `json:"date,omitempty"`
}

// RecurrenceRule is the declarative recurrence description attached to a
// schedule event. It is persisted as JSON, both in the recurrence_rule column
// and inside the legacy provenance marker, so the schema is additive-only.
type RecurrenceRule struct {
	Frequency  Frequency    `json:"frequency"`
	Interval   int          `json:"interval"`
	DaysOfWeek []int        `json:"days_of_week,omitempty"` // 0=Sunday .. 6=Saturday
	End        EndCondition `json:"end_condition"`
	Exceptions []string     `json:"exceptions,omitempty"` // YYYY-MM-DD, anchor timezone
}

// IsZero reports whether the rule is absent (a non-recurring event).
func (r RecurrenceRule) IsZero() bool {
	return r.Frequency == ""
}

// ScheduleEvent is the user-authored anchor of a (possibly recurring) series.
type ScheduleEvent struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    string          `json:"location,omitempty"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Timezone    string          `json:"timezone"` // IANA name, e.g. "America/New_York"
	AllDay      bool            `json:"all_day"`
	Recurrence  *RecurrenceRule `json:"recurrence,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Duration returns the event duration, preserved across generated instances.
func (e *ScheduleEvent) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// EventInstance is one concrete, dated occurrence derived from an anchor event
// and its rule. Instances are created in bulk at expansion time, are immutable
// within an expansion pass, and are regenerated wholesale when the anchor or
// rule changes.
type EventInstance struct {
	ID              uuid.UUID `json:"id"`
	AnchorID        uuid.UUID `json:"anchor_id"`
	UserID          uuid.UUID `json:"user_id"`
	OccurrenceIndex int       `json:"occurrence_index"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Timezone        string    `json:"timezone"`
	AllDay          bool      `json:"all_day"`
	Primary         bool      `json:"primary"`
	CreatedAt       time.Time `json:"created_at"`
}
