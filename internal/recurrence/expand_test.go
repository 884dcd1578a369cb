package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/models"
)

func newAnchor(t *testing.T, start string, durationMinutes int, tz string) *models.ScheduleEvent {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load location %s: %v", tz, err)
	}
	st, err := time.ParseInLocation("2006-01-02 15:04", start, loc)
	if err != nil {
		t.Fatalf("parse start %s: %v", start, err)
	}
	return &models.ScheduleEvent{
		ID:        uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000001"),
		UserID:    uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000002"),
		Title:     "Study group",
		StartTime: st,
		EndTime:   st.Add(time.Duration(durationMinutes) * time.Minute),
		Timezone:  tz,
	}
}

func window(t *testing.T, from, to, tz string) Window {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load location %s: %v", tz, err)
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", from, loc)
	if err != nil {
		t.Fatalf("parse window start: %v", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", to, loc)
	if err != nil {
		t.Fatalf("parse window end: %v", err)
	}
	return Window{Start: start, End: end}
}

func startDates(instances []models.EventInstance, loc *time.Location) []string {
	out := make([]string, 0, len(instances))
	for _, in := range instances {
		out = append(out, in.StartTime.In(loc).Format("2006-01-02"))
	}
	return out
}

func TestExpand_WeeklyMondayWednesday(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 60, "America/New_York")
	rule := models.RecurrenceRule{
		Frequency:  models.FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: []int{1, 3}, // Monday, Wednesday
		End:        models.EndCondition{Type: models.EndConditionNever},
	}
	res := Expand(anchor, rule, window(t, "2024-01-01 00:00", "2024-01-15 23:59", "America/New_York"))

	want := []string{"2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10", "2024-01-15"}
	loc, _ := time.LoadLocation("America/New_York")
	got := startDates(res.Instances, loc)
	if len(got) != len(want) {
		t.Fatalf("got %d instances %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instance %d: got date %s, want %s", i, got[i], want[i])
		}
	}
	for i, in := range res.Instances {
		if in.OccurrenceIndex != i {
			t.Errorf("instance %d: occurrence index %d", i, in.OccurrenceIndex)
		}
		if d := in.EndTime.Sub(in.StartTime); d != time.Hour {
			t.Errorf("instance %d: duration %v, want 1h", i, d)
		}
	}
}

func TestExpand_AfterCount(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 60, "America/New_York")
	rule := models.RecurrenceRule{
		Frequency:  models.FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: []int{1, 3},
		End:        models.EndCondition{Type: models.EndConditionAfterCount, Count: 3},
	}
	res := Expand(anchor, rule, window(t, "2024-01-01 00:00", "2024-02-01 00:00", "America/New_York"))

	want := []string{"2024-01-01", "2024-01-03", "2024-01-08"}
	loc, _ := time.LoadLocation("America/New_York")
	got := startDates(res.Instances, loc)
	if len(got) != 3 {
		t.Fatalf("got %d instances %v, want 3", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instance %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExpand_Deterministic(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 90, "America/New_York")
	rule := models.RecurrenceRule{
		Frequency: models.FrequencyDaily,
		Interval:  2,
		End:       models.EndCondition{Type: models.EndConditionNever},
		Exceptions: []string{
			"2024-01-05",
		},
	}
	w := window(t, "2024-01-01 00:00", "2024-01-20 00:00", "America/New_York")

	a := Expand(anchor, rule, w)
	b := Expand(anchor, rule, w)
	if len(a.Instances) != len(b.Instances) {
		t.Fatalf("instance counts differ: %d vs %d", len(a.Instances), len(b.Instances))
	}
	for i := range a.Instances {
		if a.Instances[i].ID != b.Instances[i].ID {
			t.Errorf("instance %d: ids differ across passes", i)
		}
		if !a.Instances[i].StartTime.Equal(b.Instances[i].StartTime) {
			t.Errorf("instance %d: start times differ across passes", i)
		}
	}
}

func TestExpand_ExceptionSuppression(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 60, "America/New_York")
	rule := models.RecurrenceRule{
		Frequency:  models.FrequencyDaily,
		Interval:   1,
		End:        models.EndCondition{Type: models.EndConditionNever},
		Exceptions: []string{"2024-01-03", "2024-01-04"},
	}
	res := Expand(anchor, rule, window(t, "2024-01-01 00:00", "2024-01-05 23:59", "America/New_York"))

	loc, _ := time.LoadLocation("America/New_York")
	for _, d := range startDates(res.Instances, loc) {
		if d == "2024-01-03" || d == "2024-01-04" {
			t.Errorf("excepted date %s was emitted", d)
		}
	}
	if len(res.Instances) != 3 {
		t.Errorf("got %d instances, want 3 (Jan 1, 2, 5)", len(res.Instances))
	}
}

func TestExpand_DSTPreservesLocalTime(t *testing.T) {
	t.Parallel()
	// US DST starts 2024-03-10: offsets shift from -0500 to -0400.
	anchor := newAnchor(t, "2024-03-08 09:00", 60, "America/New_York")
	rule := models.RecurrenceRule{
		Frequency: models.FrequencyDaily,
		Interval:  1,
		End:       models.EndCondition{Type: models.EndConditionNever},
	}
	res := Expand(anchor, rule, window(t, "2024-03-08 00:00", "2024-03-12 23:59", "America/New_York"))
	if len(res.Instances) != 5 {
		t.Fatalf("got %d instances, want 5", len(res.Instances))
	}

	loc, _ := time.LoadLocation("America/New_York")
	var offsets []int
	for i, in := range res.Instances {
		local := in.StartTime.In(loc)
		if local.Hour() != 9 || local.Minute() != 0 {
			t.Errorf("instance %d: local time %02d:%02d, want 09:00", i, local.Hour(), local.Minute())
		}
		_, off := local.Zone()
		offsets = append(offsets, off)
	}
	if offsets[0] == offsets[len(offsets)-1] {
		t.Error("expected UTC offset to change across the DST transition")
	}
}

func TestExpand_BiweeklyKeepsParityAcrossDST(t *testing.T) {
	t.Parallel()
	// The week of 2024-03-10 is 167 wall-clock hours in America/New_York.
	// The week count must come from calendar dates, not elapsed hours, or
	// every week after the transition lands on the wrong side of the
	// interval.
	anchor := newAnchor(t, "2024-03-04 09:00", 60, "America/New_York")
	rule := models.RecurrenceRule{
		Frequency:  models.FrequencyWeekly,
		Interval:   2,
		DaysOfWeek: []int{1}, // Monday
		End:        models.EndCondition{Type: models.EndConditionNever},
	}
	res := Expand(anchor, rule, window(t, "2024-03-01 00:00", "2024-04-05 23:59", "America/New_York"))

	want := []string{"2024-03-04", "2024-03-18", "2024-04-01"}
	loc, _ := time.LoadLocation("America/New_York")
	got := startDates(res.Instances, loc)
	if len(got) != len(want) {
		t.Fatalf("got %d instances %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instance %d: got date %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExpand_EmptyWeekdaysYieldsNoInstances(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 60, "UTC")
	rule := models.RecurrenceRule{
		Frequency: models.FrequencyWeekly,
		Interval:  1,
		End:       models.EndCondition{Type: models.EndConditionNever},
	}
	res := Expand(anchor, rule, window(t, "2024-01-01 00:00", "2024-02-01 00:00", "UTC"))
	if len(res.Instances) != 0 {
		t.Errorf("got %d instances, want 0", len(res.Instances))
	}
}

func TestExpand_IntervalLargerThanWindow(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 60, "UTC")
	rule := models.RecurrenceRule{
		Frequency: models.FrequencyDaily,
		Interval:  60,
		End:       models.EndCondition{Type: models.EndConditionNever},
	}
	res := Expand(anchor, rule, window(t, "2024-01-01 00:00", "2024-01-31 00:00", "UTC"))
	if len(res.Instances) != 1 {
		t.Fatalf("got %d instances, want just the anchor occurrence", len(res.Instances))
	}
	if res.Instances[0].OccurrenceIndex != 0 {
		t.Errorf("occurrence index %d, want 0", res.Instances[0].OccurrenceIndex)
	}
}

func TestExpand_WindowContainment(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 60, "UTC")
	rule := models.RecurrenceRule{
		Frequency: models.FrequencyDaily,
		Interval:  1,
		End:       models.EndCondition{Type: models.EndConditionNever},
	}
	w := window(t, "2024-01-10 00:00", "2024-01-20 00:00", "UTC")
	res := Expand(anchor, rule, w)
	for i, in := range res.Instances {
		if in.StartTime.Before(w.Start) || in.StartTime.After(w.End) {
			t.Errorf("instance %d start %v outside window", i, in.StartTime)
		}
	}
	if len(res.Instances) == 0 {
		t.Fatal("expected in-window instances")
	}
	// Occurrence indexes keep counting from the series start, not the window.
	if res.Instances[0].OccurrenceIndex != 9 {
		t.Errorf("first in-window occurrence index %d, want 9", res.Instances[0].OccurrenceIndex)
	}
}

func TestExpand_EndOnDate(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 60, "UTC")
	rule := models.RecurrenceRule{
		Frequency: models.FrequencyDaily,
		Interval:  1,
		End:       models.EndCondition{Type: models.EndConditionOnDate, Date: "2024-01-04"},
	}
	res := Expand(anchor, rule, window(t, "2024-01-01 00:00", "2024-02-01 00:00", "UTC"))
	if len(res.Instances) != 4 {
		t.Fatalf("got %d instances, want 4 (Jan 1-4 inclusive)", len(res.Instances))
	}
}

func TestExpand_MonthlySkipsShortMonths(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-31 10:00", 30, "UTC")
	rule := models.RecurrenceRule{
		Frequency: models.FrequencyMonthly,
		Interval:  1,
		End:       models.EndCondition{Type: models.EndConditionNever},
	}
	res := Expand(anchor, rule, window(t, "2024-01-01 00:00", "2024-06-01 00:00", "UTC"))

	want := []string{"2024-01-31", "2024-03-31", "2024-05-31"}
	got := startDates(res.Instances, time.UTC)
	if len(got) != len(want) {
		t.Fatalf("got dates %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instance %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExpand_InvertedWindow(t *testing.T) {
	t.Parallel()
	anchor := newAnchor(t, "2024-01-01 09:00", 60, "UTC")
	rule := models.RecurrenceRule{Frequency: models.FrequencyDaily, Interval: 1}
	res := Expand(anchor, rule, Window{Start: anchor.StartTime.AddDate(0, 0, 5), End: anchor.StartTime})
	if len(res.Instances) != 0 {
		t.Errorf("got %d instances for inverted window, want 0", len(res.Instances))
	}
}
