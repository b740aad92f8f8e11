package dismissal

import (
	"strings"

	"github.com/trezcool/dismissal/core"
)

// Issue kinds
const (
	IssueNegativeValue          = "NEGATIVE_VALUE"
	IssueZeroValue              = "ZERO_VALUE"
	IssueExceeds2Hours          = "EXCEEDS_2_HOURS"
	IssueCompletedBeforeQueued  = "COMPLETED_BEFORE_QUEUED"
	IssueCrossDayRecord         = "CROSS_DAY_RECORD"
	IssueCalculationMismatch    = "CALCULATION_MISMATCH"
	IssueInvalidFormat          = "INVALID_FORMAT"
	IssueDateMismatch           = "DATE_MISMATCH_WITH_COMPLETED"
	IssueEmptyValue             = "EMPTY_VALUE"
	IssueInvalidCarNumber       = "INVALID_CAR_NUMBER"
	IssueSuspiciousHighCar      = "SUSPICIOUS_HIGH_CAR_NUMBER"
	IssueEmptyArray             = "EMPTY_ARRAY"
	IssueIDsNamesLengthMismatch = "IDS_NAMES_LENGTH_MISMATCH"
)

// Fields
const (
	FieldWaitTime       = "waitTimeSeconds"
	FieldTimestamps     = "timestamps"
	FieldDate           = "date"
	FieldCampusLocation = "campusLocation"
	FieldCarNumber      = "carNumber"
	FieldStudentIDs     = "studentIds"
	FieldStudentNames   = "studentNames"
	FieldStudents       = "students"
)

// FieldIssue is one integrity violation found on a record.
type FieldIssue struct {
	RecordID       string      `json:"record_id"`
	Field          string      `json:"field"`
	Issue          string      `json:"issue"`
	Value          interface{} `json:"value"`
	Date           string      `json:"date"`
	CampusLocation string      `json:"campus_location"`
}

type IntegritySummary struct {
	TotalRecords      int            `json:"total_records"`
	RecordsWithIssues int            `json:"records_with_issues"`
	IssuesByField     map[string]int `json:"issues_by_field"`
	IssuesByType      map[string]int `json:"issues_by_type"`
}

// IntegrityReport lists integrity issues. Issues is capped; TotalIssues is the uncapped count.
type IntegrityReport struct {
	Summary     IntegritySummary `json:"summary"`
	Issues      []FieldIssue     `json:"issues"`
	TotalIssues int              `json:"total_issues"`
}

// ValidateFieldIntegrity runs every field check on every event. No check short-circuits another.
func ValidateFieldIntegrity(events []Event, th core.QualityThresholds) IntegrityReport {
	summary := IntegritySummary{
		TotalRecords:  len(events),
		IssuesByField: make(map[string]int),
		IssuesByType:  make(map[string]int),
	}
	issues := make([]FieldIssue, 0)

	for _, e := range events {
		found := checkEvent(e, th)
		if len(found) > 0 {
			summary.RecordsWithIssues++
		}
		for _, iss := range found {
			summary.IssuesByField[iss.Field]++
			summary.IssuesByType[iss.Issue]++
		}
		issues = append(issues, found...)
	}

	total := len(issues)
	if th.IssueLimit > 0 && total > th.IssueLimit {
		issues = issues[:th.IssueLimit]
	}
	return IntegrityReport{
		Summary:     summary,
		Issues:      issues,
		TotalIssues: total,
	}
}

func checkEvent(e Event, th core.QualityThresholds) []FieldIssue {
	var issues []FieldIssue
	add := func(field, kind string, value interface{}) {
		issues = append(issues, FieldIssue{
			RecordID:       e.ID,
			Field:          field,
			Issue:          kind,
			Value:          value,
			Date:           e.Date,
			CampusLocation: e.CampusLocation,
		})
	}

	// wait time
	switch {
	case e.WaitTimeSeconds < 0:
		add(FieldWaitTime, IssueNegativeValue, e.WaitTimeSeconds)
	case e.WaitTimeSeconds == 0:
		add(FieldWaitTime, IssueZeroValue, e.WaitTimeSeconds)
	case e.WaitTimeSeconds > th.WaitTooLongSeconds:
		add(FieldWaitTime, IssueExceeds2Hours, e.WaitTimeSeconds)
	}

	// timestamps
	if isInverted(e) {
		add(FieldTimestamps, IssueCompletedBeforeQueued, map[string]int64{"queued_at": e.QueuedAt, "completed_at": e.CompletedAt})
	}
	if isCrossDay(e) {
		add(FieldTimestamps, IssueCrossDayRecord, map[string]string{
			"queued_day":    CalendarDay(e.QueuedAt),
			"completed_day": CalendarDay(e.CompletedAt),
		})
	}
	if hasWaitMismatch(e, th) {
		add(FieldWaitTime, IssueCalculationMismatch, map[string]int64{
			"stored":     int64(e.WaitTimeSeconds),
			"calculated": e.CalculatedWaitSeconds(),
		})
	}

	// date
	if !IsValidDateFormat(e.Date) {
		add(FieldDate, IssueInvalidFormat, e.Date)
	}
	if completedDay := CalendarDay(e.CompletedAt); e.Date != completedDay {
		add(FieldDate, IssueDateMismatch, map[string]string{"date": e.Date, "completed_day": completedDay})
	}

	// campus
	if strings.TrimSpace(e.CampusLocation) == "" {
		add(FieldCampusLocation, IssueEmptyValue, e.CampusLocation)
	}

	// car number
	if e.CarNumber <= 0 {
		add(FieldCarNumber, IssueInvalidCarNumber, e.CarNumber)
	} else if e.CarNumber > th.MaxCarNumber {
		add(FieldCarNumber, IssueSuspiciousHighCar, e.CarNumber)
	}

	// students
	if len(e.StudentIDs) == 0 {
		add(FieldStudentIDs, IssueEmptyArray, e.StudentIDs)
	}
	if len(e.StudentNames) == 0 {
		add(FieldStudentNames, IssueEmptyArray, e.StudentNames)
	}
	if len(e.StudentIDs) > 0 && len(e.StudentNames) > 0 && len(e.StudentIDs) != len(e.StudentNames) {
		add(FieldStudents, IssueIDsNamesLengthMismatch, map[string]int{
			"ids":   len(e.StudentIDs),
			"names": len(e.StudentNames),
		})
	}
	return issues
}

func isInverted(e Event) bool {
	return e.CompletedAt < e.QueuedAt
}

func isCrossDay(e Event) bool {
	return CalendarDay(e.QueuedAt) != CalendarDay(e.CompletedAt)
}

func hasWaitMismatch(e Event, th core.QualityThresholds) bool {
	diff := int64(e.WaitTimeSeconds) - e.CalculatedWaitSeconds()
	if diff < 0 {
		diff = -diff
	}
	return diff > int64(th.WaitMismatchToleranceSecs)
}
