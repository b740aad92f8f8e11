package dismissal

import (
	"context"
	"fmt"
	"time"
)

var testDay = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

// newEvent returns a clean event queued at the given time of testDay and waiting wait seconds.
func newEvent(id string, queuedAt time.Duration, wait int) Event {
	q := testDay.Add(queuedAt)
	c := q.Add(time.Duration(wait) * time.Second)
	return Event{
		ID:              id,
		Date:            c.Format(dateLayout),
		CampusLocation:  "Main Campus",
		CarNumber:       42,
		QueuedAt:        q.UnixMilli(),
		CompletedAt:     c.UnixMilli(),
		WaitTimeSeconds: wait,
		StudentIDs:      []string{"s1"},
		StudentNames:    []string{"Ada Lovelace"},
	}
}

func cleanEvents(n int) []Event {
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, newEvent(fmt.Sprintf("e%d", i), 15*time.Hour+time.Duration(i)*time.Minute, 120))
	}
	return events
}

type fakeRepo struct {
	events []Event
	err    error
}

func (r *fakeRepo) QueryAllEvents(context.Context) ([]Event, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.events, nil
}

func (r *fakeRepo) CreateEvents(_ context.Context, events ...Event) ([]Event, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = fmt.Sprintf("gen-%d", len(r.events)+i)
		}
	}
	r.events = append(r.events, events...)
	return events, nil
}

type nopLogger struct{ warnings []string }

func (l *nopLogger) Debug(string, ...interface{}) {}
func (l *nopLogger) Info(string, ...interface{})  {}
func (l *nopLogger) Warn(msg string, _ ...interface{}) {
	l.warnings = append(l.warnings, msg)
}
func (l *nopLogger) Error(string, ...interface{}) {}
func (l *nopLogger) Fatal(string, ...interface{}) {}

type recordingObserver struct {
	analyzed map[string]int
	health   []HealthReport
}

func (o *recordingObserver) RecordsAnalyzed(report string, n int) {
	if o.analyzed == nil {
		o.analyzed = make(map[string]int)
	}
	o.analyzed[report] += n
}

func (o *recordingObserver) HealthReported(report HealthReport) {
	o.health = append(o.health, report)
}
