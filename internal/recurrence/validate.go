package recurrence

import (
	"fmt"
	"time"

	"github.com/studydesk/api/internal/models"
)

// ValidationResult collects every problem found in a rule so the caller can
// report them all at once instead of fixing one at a time.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks a rule against the anchor it would be attached to. It never
// rejects by throwing; callers decide whether to block the operation.
func Validate(rule models.RecurrenceRule, anchorStart time.Time, timezone string) ValidationResult {
	var errs []string

	switch rule.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyCustom:
	default:
		errs = append(errs, fmt.Sprintf("frequency must be one of daily, weekly, monthly, custom (got %q)", rule.Frequency))
	}

	if rule.Interval < 1 {
		errs = append(errs, fmt.Sprintf("interval must be at least 1 (got %d)", rule.Interval))
	}

	if rule.Frequency == models.FrequencyWeekly || rule.Frequency == models.FrequencyCustom {
		if len(rule.DaysOfWeek) == 0 {
			errs = append(errs, "days_of_week must not be empty for weekly or custom frequency")
		}
		for _, d := range rule.DaysOfWeek {
			if d < 0 || d > 6 {
				errs = append(errs, fmt.Sprintf("days_of_week values must be 0-6 (got %d)", d))
			}
		}
	}

	switch rule.End.Type {
	case models.EndConditionNever, "":
	case models.EndConditionAfterCount:
		if rule.End.Count < 1 {
			errs = append(errs, fmt.Sprintf("end condition count must be at least 1 (got %d)", rule.End.Count))
		}
	case models.EndConditionOnDate:
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			loc = time.UTC
		}
		d, err := time.ParseInLocation(dayLayout, rule.End.Date, loc)
		if err != nil {
			errs = append(errs, fmt.Sprintf("end condition date must be YYYY-MM-DD (got %q)", rule.End.Date))
		} else if dayAfter(dateOnly(anchorStart.In(loc)), d) {
			errs = append(errs, fmt.Sprintf("end condition date %s is before the event start date", rule.End.Date))
		}
	default:
		errs = append(errs, fmt.Sprintf("end condition type must be one of never, after_count, on_date (got %q)", rule.End.Type))
	}

	for _, ex := range rule.Exceptions {
		if _, err := time.Parse(dayLayout, ex); err != nil {
			errs = append(errs, fmt.Sprintf("exception dates must be YYYY-MM-DD (got %q)", ex))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
