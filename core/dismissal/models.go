package dismissal

import "context"

// Event is one car being queued and later completing the pickup of one or more students.
// Events are immutable once written; violations of the expected invariants are reported as findings.
type Event struct {
	ID              string   `json:"id"`
	Date            string   `json:"date"` // YYYY-MM-DD
	CampusLocation  string   `json:"campus_location"`
	CarNumber       int      `json:"car_number"`
	QueuedAt        int64    `json:"queued_at"`    // unix ms
	CompletedAt     int64    `json:"completed_at"` // unix ms
	WaitTimeSeconds int      `json:"wait_time_seconds"`
	StudentIDs      []string `json:"student_ids"`
	StudentNames    []string `json:"student_names"`
}

// CalculatedWaitSeconds is the wait time derived from the event timestamps.
func (e Event) CalculatedWaitSeconds() int64 {
	return elapsedSeconds(e.QueuedAt, e.CompletedAt)
}

type Repository interface {
	// QueryAllEvents returns every event currently stored.
	QueryAllEvents(ctx context.Context) ([]Event, error)
	// CreateEvents stores new events, generating IDs for those without one.
	CreateEvents(ctx context.Context, events ...Event) ([]Event, error)
}

// Stats describes a numeric sample. Every field but Count is rounded to the nearest integer.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	r := a % b
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r
}

// elapsedSeconds is floor((toMs - fromMs) / 1000) for any pair of int64 timestamps.
// Whole seconds and millisecond remainders are subtracted separately, so the
// difference never overflows.
func elapsedSeconds(fromMs, toMs int64) int64 {
	secs := floorDiv(toMs, 1000) - floorDiv(fromMs, 1000)
	return secs + floorDiv(floorMod(toMs, 1000)-floorMod(fromMs, 1000), 1000)
}
