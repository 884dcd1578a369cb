package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/studydesk/api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("frequency", validateFrequency); err != nil {
		panic(fmt.Sprintf("failed to register frequency validator: %v", err))
	}
	if err := Validate.RegisterValidation("assignment_status", validateAssignmentStatus); err != nil {
		panic(fmt.Sprintf("failed to register assignment_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("assignment_priority", validateAssignmentPriority); err != nil {
		panic(fmt.Sprintf("failed to register assignment_priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("highlight_category", validateHighlightCategory); err != nil {
		panic(fmt.Sprintf("failed to register highlight_category validator: %v", err))
	}
	if err := Validate.RegisterValidation("timezone", validateTimezone); err != nil {
		panic(fmt.Sprintf("failed to register timezone validator: %v", err))
	}
}

// validateFrequency validates that a string is a valid Frequency enum value
func validateFrequency(fl validator.FieldLevel) bool {
	return ValidateFrequency(fl.Field().String()) == nil
}

// validateAssignmentStatus validates that a string is a valid AssignmentStatus enum value
func validateAssignmentStatus(fl validator.FieldLevel) bool {
	return ValidateAssignmentStatus(fl.Field().String()) == nil
}

// validateAssignmentPriority validates that a string is a valid AssignmentPriority enum value
func validateAssignmentPriority(fl validator.FieldLevel) bool {
	return ValidateAssignmentPriority(fl.Field().String()) == nil
}

// validateHighlightCategory validates that a string is a valid highlight Category
func validateHighlightCategory(fl validator.FieldLevel) bool {
	return models.DefaultCategories().Valid(models.Category(fl.Field().String()))
}

// validateTimezone validates that a string is a loadable IANA zone name
func validateTimezone(fl validator.FieldLevel) bool {
	return ValidateTimezone(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateFrequency validates a Frequency string value
func ValidateFrequency(value string) error {
	switch models.Frequency(value) {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyCustom:
		return nil
	default:
		return fmt.Errorf("invalid frequency: %s (must be 'daily', 'weekly', 'monthly', or 'custom')", value)
	}
}

// ValidateAssignmentStatus validates an AssignmentStatus string value
func ValidateAssignmentStatus(value string) error {
	switch models.AssignmentStatus(value) {
	case models.AssignmentStatusPending, models.AssignmentStatusSubmitted, models.AssignmentStatusGraded:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'pending', 'submitted', or 'graded')", value)
	}
}

// ValidateAssignmentPriority validates an AssignmentPriority string value
func ValidateAssignmentPriority(value string) error {
	switch models.AssignmentPriority(value) {
	case models.AssignmentPriorityLow, models.AssignmentPriorityMedium, models.AssignmentPriorityHigh:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', or 'high')", value)
	}
}

// ValidateHighlightCategory validates a highlight category string value
func ValidateHighlightCategory(value string) error {
	if !models.DefaultCategories().Valid(models.Category(value)) {
		return fmt.Errorf("invalid category: %s (must be 'red', 'yellow', 'green', or 'blue')", value)
	}
	return nil
}

// ValidateTimezone validates an IANA timezone name
func ValidateTimezone(value string) error {
	if value == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("invalid timezone: %s", value)
	}
	return nil
}
