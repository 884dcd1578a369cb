package recurrence

import (
	"time"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/models"
)

// ConflictTarget is the time slot being checked for overlaps. ExcludeID, when
// set, removes that instance from the candidates before comparison so an
// instance being edited does not conflict with itself.
type ConflictTarget struct {
	Start     time.Time
	End       time.Time
	ExcludeID *uuid.UUID
}

// FindConflicts returns every candidate whose [start, end) interval strictly
// overlaps the target's, preserving candidate order. Both sides are compared
// on the absolute-instant axis; local wall-clock representations in different
// timezones never enter the comparison directly.
func FindConflicts(target ConflictTarget, candidates []models.EventInstance) []models.EventInstance {
	var conflicts []models.EventInstance
	for _, c := range candidates {
		if target.ExcludeID != nil && c.ID == *target.ExcludeID {
			continue
		}
		if Overlaps(target.Start, target.End, c.StartTime, c.EndTime) {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts
}

// Overlaps reports strict [start, end) interval overlap on the instant axis.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
