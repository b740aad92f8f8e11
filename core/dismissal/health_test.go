package dismissal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dismissal/core"
)

func TestBuildHealthReport_noData(t *testing.T) {
	report := BuildHealthReport(nil, core.DefaultQualityThresholds())

	assert.Equal(t, StatusNoData, report.Status)
	assert.Zero(t, report.HealthScore)
	assert.Zero(t, report.TotalRecords)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Recommendations)
}

func TestBuildHealthReport_clean(t *testing.T) {
	report := BuildHealthReport(cleanEvents(10), core.DefaultQualityThresholds())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, 100, report.HealthScore)
	assert.Equal(t, HealthSummary{CleanRecords: 10}, report.Summary)
	assert.Empty(t, report.Issues)
}

func TestBuildHealthReport_invertedAndCarNumber(t *testing.T) {
	events := cleanEvents(8)
	inv := &events[0]
	inv.QueuedAt = 1700000000000
	inv.CompletedAt = 1699999999000
	inv.Date = CalendarDay(inv.CompletedAt)
	inv.WaitTimeSeconds = -1
	events[1].CarNumber = 0
	events[2].CarNumber = 10000

	report := BuildHealthReport(events, core.DefaultQualityThresholds())

	for _, iss := range report.Issues {
		assert.Equal(t, SeverityCritical, iss.Severity, iss.Message)
	}
	require.Len(t, report.Issues, 3) // negative wait, inverted, car number
	assert.Equal(t, HealthIssue{
		Severity:   SeverityCritical,
		Category:   FieldTimestamps,
		Message:    "1 records completed before they were queued",
		Count:      1,
		Percentage: 12.5,
	}, report.Issues[1])
	assert.Equal(t, FieldCarNumber, report.Issues[2].Category)
	assert.Equal(t, 1, report.Issues[2].Count)

	assert.Equal(t, 3, report.Summary.CriticalIssues)
	assert.Equal(t, 6, report.Summary.CleanRecords) // car 10000 is not a health check
	assert.Equal(t, 63, report.HealthScore)         // 100 - 3/8*100 = 62.5
	assert.Equal(t, StatusCritical, report.Status)
}

func TestBuildHealthReport_campusVariation(t *testing.T) {
	events := cleanEvents(20)
	for i := range events {
		if i%2 == 0 {
			events[i].CampusLocation = "Main "
		} else {
			events[i].CampusLocation = "main"
		}
	}

	report := BuildHealthReport(events, core.DefaultQualityThresholds())

	require.Len(t, report.Issues, 1)
	iss := report.Issues[0]
	assert.Equal(t, SeverityWarning, iss.Severity)
	assert.Equal(t, FieldCampusLocation, iss.Category)
	assert.Equal(t, 1, iss.Count)
	assert.Zero(t, iss.Percentage)
	assert.Contains(t, iss.Message, `"Main " / "main"`)
	assert.Equal(t, 1, report.Summary.WarningIssues)
	assert.Equal(t, 98, report.HealthScore) // 100 - 0.5/20*100 = 97.5
	assert.Equal(t, []string{recommendationsFor(core.DefaultQualityThresholds())[FieldCampusLocation][0]}, report.Recommendations)
}

func TestBuildHealthReport_sortsBySeverity(t *testing.T) {
	events := cleanEvents(10)
	events[0].StudentIDs = nil                 // warning
	events[1].WaitTimeSeconds = 0              // warning
	events[1].CompletedAt = events[1].QueuedAt // no mismatch
	events[2].CarNumber = -1                   // critical
	events[3].WaitTimeSeconds = 500            // critical mismatch

	report := BuildHealthReport(events, core.DefaultQualityThresholds())

	var severities []string
	for _, iss := range report.Issues {
		severities = append(severities, iss.Severity)
	}
	assert.Equal(t, []string{SeverityCritical, SeverityCritical, SeverityWarning, SeverityWarning}, severities)
	assert.Equal(t, FieldWaitTime, report.Issues[0].Category) // mismatch ran before car number
	assert.Equal(t, FieldCarNumber, report.Issues[1].Category)
	assert.Equal(t, FieldWaitTime, report.Issues[2].Category)
	assert.Equal(t, FieldStudents, report.Issues[3].Category)

	recs := recommendationsFor(core.DefaultQualityThresholds())
	want := append(append([]string{}, recs[FieldWaitTime]...), recs[FieldStudents]...)
	want = append(want, recs[FieldCarNumber]...)
	assert.Equal(t, want, report.Recommendations)
}

func TestBuildHealthReport_crossDay(t *testing.T) {
	events := cleanEvents(4)
	e := newEvent("late", 23*time.Hour+59*time.Minute, 120)
	events = append(events, e)

	report := BuildHealthReport(events, core.DefaultQualityThresholds())

	require.Len(t, report.Issues, 1)
	assert.Equal(t, FieldTimestamps, report.Issues[0].Category)
	assert.Equal(t, 20.0, report.Issues[0].Percentage)
	assert.Equal(t, recommendationsFor(core.DefaultQualityThresholds())[FieldTimestamps], report.Recommendations)
}

func TestBuildHealthReport_recommendationsFollowThresholds(t *testing.T) {
	th := core.DefaultQualityThresholds()
	th.WaitTooLongSeconds = 3600
	events := cleanEvents(3)
	events[1] = newEvent("slow", 15*time.Hour, 3700)

	report := BuildHealthReport(events, th)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "1 records waiting more than 3600 seconds", report.Issues[0].Message)
	assert.Equal(t, []string{
		"Recalculate waitTimeSeconds from queuedAt and completedAt",
		"Filter out wait times outside the 0-3600 second range before computing metrics",
	}, report.Recommendations)
}

func TestHealthScore(t *testing.T) {
	tests := []struct {
		name                     string
		critical, warning, total int
		want                     int
	}{
		{name: "no records", total: 0, want: 0},
		{name: "clean", total: 50, want: 100},
		{name: "half weight warnings", warning: 10, total: 100, want: 95},
		{name: "rounds half up", critical: 1, total: 8, want: 88}, // 87.5
		{name: "floored at zero", critical: 30, warning: 10, total: 20, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HealthScore(tt.critical, tt.warning, tt.total))
		})
	}

	t.Run("non-increasing", func(t *testing.T) {
		prev := 100
		for c := 0; c < 40; c++ {
			for w := 0; w < 3; w++ {
				got := HealthScore(c, c+w, 25)
				assert.GreaterOrEqual(t, got, 0)
				assert.LessOrEqual(t, got, prev)
				prev = got
			}
		}
	})
}

func TestHealthStatus(t *testing.T) {
	th := core.DefaultQualityThresholds()
	tests := []struct {
		score int
		want  string
	}{
		{100, StatusHealthy},
		{90, StatusHealthy},
		{89, StatusWarning},
		{70, StatusWarning},
		{69, StatusCritical},
		{0, StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HealthStatus(tt.score, th), "score %d", tt.score)
	}
}

func TestCampusNameVariations(t *testing.T) {
	names := []string{"North", "Main ", "main", "MAIN  ", "north", "South", ""}
	events := make([]Event, 0, len(names))
	for _, n := range names {
		e := newEvent("x", 15*time.Hour, 60)
		e.CampusLocation = n
		events = append(events, e)
	}

	assert.Equal(t, [][]string{{"MAIN  ", "Main ", "main"}, {"North", "north"}}, CampusNameVariations(events))
}
