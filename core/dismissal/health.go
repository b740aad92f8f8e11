package dismissal

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/trezcool/dismissal/core"
)

// Health statuses
const (
	StatusNoData   = "NO_DATA"
	StatusHealthy  = "HEALTHY"
	StatusWarning  = "WARNING"
	StatusCritical = "CRITICAL"
)

// Severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

var severityRank = map[string]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

var recommendationOrder = []string{FieldWaitTime, FieldTimestamps, FieldStudents, FieldCampusLocation, FieldCarNumber}

// recommendationsFor returns the advice given per issue category.
func recommendationsFor(th core.QualityThresholds) map[string][]string {
	return map[string][]string{
		FieldWaitTime: {
			"Recalculate waitTimeSeconds from queuedAt and completedAt",
			fmt.Sprintf("Filter out wait times outside the 0-%d second range before computing metrics", th.WaitTooLongSeconds),
		},
		FieldTimestamps: {
			"Investigate records completed before they were queued and correct their timestamps",
			"Review cross-day records, they usually mean a dismissal was never closed",
		},
		FieldStudents:       {"Backfill missing student lists from the pickup roster"},
		FieldCampusLocation: {"Standardize campus names so that variations map to a single campus"},
		FieldCarNumber:      {"Correct or remove records with a car number of zero or less"},
	}
}

type (
	HealthIssue struct {
		Severity   string  `json:"severity"`
		Category   string  `json:"category"`
		Message    string  `json:"message"`
		Count      int     `json:"count"`
		Percentage float64 `json:"percentage"`
	}

	HealthSummary struct {
		CriticalIssues int `json:"critical_issues"`
		WarningIssues  int `json:"warning_issues"`
		CleanRecords   int `json:"clean_records"`
	}

	HealthReport struct {
		Status          string        `json:"status"`
		TotalRecords    int           `json:"total_records"`
		HealthScore     int           `json:"health_score"`
		Summary         HealthSummary `json:"summary"`
		Issues          []HealthIssue `json:"issues"`
		Recommendations []string      `json:"recommendations"`
	}

	healthCheck struct {
		severity string
		category string
		message  string
		match    func(e Event) bool
	}
)

func healthChecks(th core.QualityThresholds) []healthCheck {
	return []healthCheck{
		{SeverityCritical, FieldWaitTime, "records with a negative wait time", func(e Event) bool {
			return e.WaitTimeSeconds < 0
		}},
		{SeverityWarning, FieldWaitTime, "records with a zero wait time", func(e Event) bool {
			return e.WaitTimeSeconds == 0
		}},
		{SeverityWarning, FieldWaitTime, fmt.Sprintf("records waiting more than %d seconds", th.WaitTooLongSeconds), func(e Event) bool {
			return e.WaitTimeSeconds > th.WaitTooLongSeconds
		}},
		{SeverityCritical, FieldTimestamps, "records completed before they were queued", isInverted},
		{SeverityWarning, FieldTimestamps, "records queued and completed on different days", isCrossDay},
		{SeverityCritical, FieldWaitTime, "records whose wait time does not match their timestamps", func(e Event) bool {
			return hasWaitMismatch(e, th)
		}},
		{SeverityWarning, FieldStudents, "records without students", func(e Event) bool {
			return len(e.StudentIDs) == 0
		}},
		{SeverityCritical, FieldCarNumber, "records with an invalid car number", func(e Event) bool {
			return e.CarNumber <= 0
		}},
	}
}

// BuildHealthReport scores the collection from 0 to 100 and lists the problems found, most severe first.
func BuildHealthReport(events []Event, th core.QualityThresholds) HealthReport {
	total := len(events)
	report := HealthReport{
		Status:          StatusNoData,
		TotalRecords:    total,
		Issues:          make([]HealthIssue, 0),
		Recommendations: make([]string, 0),
	}
	if total == 0 {
		return report
	}

	var critical, warning int
	tally := func(severity string, n int) {
		if severity == SeverityCritical {
			critical += n
		} else if severity == SeverityWarning {
			warning += n
		}
	}

	dirty := make([]bool, total)
	for _, check := range healthChecks(th) {
		count := 0
		for i, e := range events {
			if check.match(e) {
				count++
				dirty[i] = true
			}
		}
		if count == 0 {
			continue
		}
		tally(check.severity, count)
		report.Issues = append(report.Issues, HealthIssue{
			Severity:   check.severity,
			Category:   check.category,
			Message:    fmt.Sprintf("%d %s", count, check.message),
			Count:      count,
			Percentage: round(float64(count)/float64(total)*100, 2),
		})
	}

	if variations := CampusNameVariations(events); len(variations) > 0 {
		tally(SeverityWarning, len(variations))
		examples := make([]string, 0, len(variations))
		for _, names := range variations {
			examples = append(examples, strings.Join(quoteAll(names), " / "))
		}
		report.Issues = append(report.Issues, HealthIssue{
			Severity: SeverityWarning,
			Category: FieldCampusLocation,
			Message:  fmt.Sprintf("%d campus names have spelling variations: %s", len(variations), strings.Join(examples, "; ")),
			Count:    len(variations),
		})
	}

	sort.SliceStable(report.Issues, func(i, j int) bool {
		return severityRank[report.Issues[i].Severity] < severityRank[report.Issues[j].Severity]
	})

	clean := 0
	for _, d := range dirty {
		if !d {
			clean++
		}
	}
	report.Summary = HealthSummary{CriticalIssues: critical, WarningIssues: warning, CleanRecords: clean}
	report.HealthScore = HealthScore(critical, warning, total)
	report.Status = HealthStatus(report.HealthScore, th)
	report.Recommendations = recommend(report.Issues, th)
	return report
}

// HealthScore is max(0, round(100 - (critical + warning/2) / total * 100)).
func HealthScore(critical, warning, total int) int {
	if total <= 0 {
		return 0
	}
	score := math.Round(100 - (float64(critical)+0.5*float64(warning))/float64(total)*100)
	if score < 0 {
		return 0
	}
	return int(score)
}

func HealthStatus(score int, th core.QualityThresholds) string {
	switch {
	case score >= th.HealthyScore:
		return StatusHealthy
	case score >= th.WarningScore:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// CampusNameVariations returns, per normalized key, the distinct raw campus names that share it.
// Only keys with two or more spellings are returned, sorted by key.
func CampusNameVariations(events []Event) [][]string {
	byKey := make(map[string][]string)
	seen := make(map[string]bool)
	for _, e := range events {
		if seen[e.CampusLocation] {
			continue
		}
		seen[e.CampusLocation] = true
		key := core.NormalizeKey(e.CampusLocation)
		if key == "" {
			continue
		}
		byKey[key] = append(byKey[key], e.CampusLocation)
	}

	keys := make([]string, 0, len(byKey))
	for k, names := range byKey {
		if len(names) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		names := byKey[k]
		sort.Strings(names)
		out = append(out, names)
	}
	return out
}

func recommend(issues []HealthIssue, th core.QualityThresholds) []string {
	recommendations := recommendationsFor(th)
	present := make(map[string]bool)
	for _, iss := range issues {
		present[iss.Category] = true
	}
	out := make([]string, 0)
	for _, cat := range recommendationOrder {
		if present[cat] {
			out = append(out, recommendations[cat]...)
		}
	}
	return out
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}
