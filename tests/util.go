package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
)

// Event builds a clean event at campus, queued at the given UTC time and waiting wait seconds.
func Event(campus string, car int, queuedAt time.Time, wait int, students ...string) dismissal.Event {
	queuedAt = queuedAt.UTC()
	completedAt := queuedAt.Add(time.Duration(wait) * time.Second)
	if len(students) == 0 {
		students = []string{"Ada Lovelace"}
	}
	ids := make([]string, len(students))
	for i := range students {
		ids[i] = "student-" + students[i]
	}
	return dismissal.Event{
		Date:            completedAt.Format("2006-01-02"),
		CampusLocation:  campus,
		CarNumber:       car,
		QueuedAt:        queuedAt.UnixMilli(),
		CompletedAt:     completedAt.UnixMilli(),
		WaitTimeSeconds: wait,
		StudentIDs:      ids,
		StudentNames:    append([]string(nil), students...),
	}
}

// Day returns the given UTC day at hour:min.
func Day(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func CreateEvents(t *testing.T, repo dismissal.Repository, events ...dismissal.Event) []dismissal.Event {
	created, err := repo.CreateEvents(context.Background(), events...)
	if err != nil {
		t.Fatalf("CreateEvents() failed: %v", err)
	}
	return created
}

// Logger discards every message, keeping warnings and errors for assertions.
type Logger struct {
	Warnings []string
	Errors   []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) Debug(string, ...interface{}) {}
func (l *Logger) Info(string, ...interface{})  {}
func (l *Logger) Warn(msg string, _ ...interface{}) {
	l.Warnings = append(l.Warnings, msg)
}
func (l *Logger) Error(msg string, _ ...interface{}) {
	l.Errors = append(l.Errors, msg)
}
func (l *Logger) Fatal(msg string, _ ...interface{}) {
	l.Errors = append(l.Errors, msg)
}
