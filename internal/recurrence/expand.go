package recurrence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/models"
)

const (
	// MaxOccurrences is a safety cap per expansion pass so an open-ended rule
	// over a huge window cannot produce an unbounded instance set.
	MaxOccurrences = 2000

	dayLayout = "2006-01-02"
)

// instanceNamespace seeds deterministic instance ids: the same
// (anchor, occurrence index) pair always yields the same id, which keeps
// re-expansion after edits byte-for-byte identical.
var instanceNamespace = uuid.MustParse("6f1c24b8-9a6e-4d3a-8f0b-2c9d51e7aa41")

// Window bounds an expansion pass. Instances are only emitted when their
// start falls inside [Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// Result is the output of one expansion pass.
type Result struct {
	Instances []models.EventInstance
	// Truncated is set when the MaxOccurrences cap cut the series short.
	Truncated bool
}

// Expand generates the concrete instances of a recurring event inside the
// given window. It is pure and total for structurally valid rules: the same
// (anchor, rule, window) triple always yields the identical sequence.
//
// Each instance keeps the anchor's local wall-clock time-of-day and duration;
// only the calendar date advances. The start instant is rebuilt by reapplying
// the anchor's local hour/minute to the new date in the anchor's timezone, so
// daylight-saving transitions shift the absolute instant but preserve the
// displayed local time.
func Expand(anchor *models.ScheduleEvent, rule models.RecurrenceRule, window Window) Result {
	var res Result
	if window.End.Before(window.Start) {
		return res
	}

	loc := anchorLocation(anchor)
	startLocal := anchor.StartTime.In(loc)
	hour, minute, sec := startLocal.Clock()
	duration := anchor.Duration()

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	weekdays := weekdaySet(rule.DaysOfWeek)
	if (rule.Frequency == models.FrequencyWeekly || rule.Frequency == models.FrequencyCustom) && len(weekdays) == 0 {
		// An empty weekday filter means the series selects nothing. Explicitly
		// empty, not an error.
		return res
	}

	exceptions := make(map[string]struct{}, len(rule.Exceptions))
	for _, d := range rule.Exceptions {
		exceptions[d] = struct{}{}
	}

	var endDate time.Time
	haveEndDate := false
	if rule.End.Type == models.EndConditionOnDate {
		if d, err := time.ParseInLocation(dayLayout, rule.End.Date, loc); err == nil {
			endDate = d
			haveEndDate = true
		}
		// A malformed end date degrades to "never"; Validate reports it.
	}

	// emitted counts non-excepted series occurrences independent of the
	// window, so an after_count rule refers to the same occurrences no matter
	// which window a caller asks about.
	emitted := 0
	seriesDates(startLocal, rule.Frequency, interval, weekdays)(func(date time.Time) bool {
		start := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, sec, 0, loc)

		if haveEndDate && dayAfter(date, endDate) {
			return false
		}
		if start.After(window.End) {
			return false
		}
		if _, skip := exceptions[date.Format(dayLayout)]; skip {
			return true
		}

		emitted++
		if rule.End.Type == models.EndConditionAfterCount && emitted > rule.End.Count {
			return false
		}

		if start.Before(window.Start) {
			return true
		}

		idx := emitted - 1
		res.Instances = append(res.Instances, models.EventInstance{
			ID:              instanceID(anchor.ID, idx),
			AnchorID:        anchor.ID,
			UserID:          anchor.UserID,
			OccurrenceIndex: idx,
			Title:           anchor.Title,
			Description:     anchor.Description,
			Location:        anchor.Location,
			StartTime:       start,
			EndTime:         start.Add(duration),
			Timezone:        anchor.Timezone,
			AllDay:          anchor.AllDay,
			Primary:         idx == 0,
		})

		if len(res.Instances) >= MaxOccurrences {
			res.Truncated = true
			return false
		}
		return true
	})

	return res
}

// PrimaryInstance materializes a non-recurring event as its single instance
// row, using the same deterministic id scheme as series expansion.
func PrimaryInstance(anchor *models.ScheduleEvent) models.EventInstance {
	return models.EventInstance{
		ID:              instanceID(anchor.ID, 0),
		AnchorID:        anchor.ID,
		UserID:          anchor.UserID,
		OccurrenceIndex: 0,
		Title:           anchor.Title,
		Description:     anchor.Description,
		Location:        anchor.Location,
		StartTime:       anchor.StartTime,
		EndTime:         anchor.EndTime,
		Timezone:        anchor.Timezone,
		AllDay:          anchor.AllDay,
		Primary:         true,
	}
}

// seriesDates yields the candidate calendar dates of a series in order,
// starting at the anchor's own date. The caller stops iteration via the
// window and end-condition checks; the generator itself is unbounded except
// for monthly short-month skips.
func seriesDates(startLocal time.Time, freq models.Frequency, interval int, weekdays map[time.Weekday]struct{}) func(yield func(time.Time) bool) {
	anchorDate := dateOnly(startLocal)

	switch freq {
	case models.FrequencyDaily:
		return func(yield func(time.Time) bool) {
			for d := anchorDate; ; d = d.AddDate(0, 0, interval) {
				if !yield(d) {
					return
				}
			}
		}

	case models.FrequencyWeekly, models.FrequencyCustom:
		// Step day by day; a date is part of the series when its weekday is
		// selected and its week is a multiple of interval weeks from the
		// anchor's week (weeks start on Sunday, matching weekday 0).
		anchorWeek := weekStart(anchorDate)
		return func(yield func(time.Time) bool) {
			for d := anchorDate; ; d = d.AddDate(0, 0, 1) {
				if _, ok := weekdays[d.Weekday()]; !ok {
					continue
				}
				weeks := daysBetween(anchorWeek, weekStart(d)) / 7
				if weeks%interval != 0 {
					continue
				}
				if !yield(d) {
					return
				}
			}
		}

	case models.FrequencyMonthly:
		// Occurrences stay pinned to the anchor's day-of-month; months that
		// lack that day are skipped rather than clamped, since AddDate's
		// normalization would silently move the event.
		day := anchorDate.Day()
		return func(yield func(time.Time) bool) {
			for k := 0; ; k += interval {
				d := time.Date(anchorDate.Year(), anchorDate.Month()+time.Month(k), day, 0, 0, 0, 0, anchorDate.Location())
				if d.Day() != day {
					continue
				}
				if !yield(d) {
					return
				}
			}
		}

	default:
		return func(yield func(time.Time) bool) {}
	}
}

func anchorLocation(anchor *models.ScheduleEvent) *time.Location {
	loc, err := time.LoadLocation(anchor.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

func weekdaySet(days []int) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(days))
	for _, d := range days {
		if d >= 0 && d <= 6 {
			set[time.Weekday(d)] = struct{}{}
		}
	}
	return set
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns the Sunday starting the week containing d.
func weekStart(d time.Time) time.Time {
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// daysBetween counts calendar days from a to b. The dates are re-anchored in
// UTC first: subtracting zoned midnights would undercount across a
// DST-shortened day and truncate the quotient.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}

// dayAfter reports whether a falls on a later calendar day than b.
func dayAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}

func instanceID(anchorID uuid.UUID, occurrenceIndex int) uuid.UUID {
	return uuid.NewSHA1(instanceNamespace, []byte(fmt.Sprintf("%s/%d", anchorID, occurrenceIndex)))
}
