package recurrence

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/studydesk/api/internal/models"
)

// Legacy records persisted through storage backends without a recurrence
// column carry the serialized rule inside a free-text field, wrapped in a
// fixed marker. The marker format is unversioned; any future change to the
// payload shape must introduce a new, distinguishable prefix rather than
// reuse this one.
const (
	markerPrefix = "__RECURRENCE_PATTERN__"
	markerSuffix = "__END_PATTERN__"
)

var markerRe = regexp.MustCompile(regexp.QuoteMeta(markerPrefix) + `(.*?)` + regexp.QuoteMeta(markerSuffix))

// EncodeMarker appends the serialized rule to text using the embedded-marker
// convention.
func EncodeMarker(text string, rule models.RecurrenceRule) (string, error) {
	payload, err := json.Marshal(rule)
	if err != nil {
		return "", err
	}
	return text + markerPrefix + string(payload) + markerSuffix, nil
}

// ExtractRule recovers an embedded rule from text. A missing or malformed
// marker degrades to "not recurring" (ok=false); it is never an error, since
// the text being scanned is persisted, potentially stale user data.
func ExtractRule(text string) (models.RecurrenceRule, bool) {
	m := markerRe.FindStringSubmatch(text)
	if m == nil {
		return models.RecurrenceRule{}, false
	}
	var rule models.RecurrenceRule
	if err := json.Unmarshal([]byte(m[1]), &rule); err != nil {
		return models.RecurrenceRule{}, false
	}
	if rule.IsZero() {
		return models.RecurrenceRule{}, false
	}
	return rule, true
}

// StripMarker removes every embedded marker from text, returning the display
// form.
func StripMarker(text string) string {
	return strings.TrimSpace(markerRe.ReplaceAllString(text, ""))
}
