package metrics

import (
	"context"
	"time"
)

// Metric types
const (
	TypeCampusActivity  = "campus_activity"
	TypeAvgWaitTime     = "avg_wait_time"
	TypeSessionDuration = "session_duration"
)

var NowFunc = time.Now // mockable

type (
	// DashboardMetric is one derived value keyed by (MetricType, CampusLocation, Month).
	// Only the fields relevant to its type are filled.
	DashboardMetric struct {
		ID             string `json:"id"`
		MetricType     string `json:"metric_type"`
		CampusLocation string `json:"campus_location"`
		Month          string `json:"month"`

		TotalEvents   int `json:"total_events"`
		TotalStudents int `json:"total_students"`

		TotalWaitSeconds int64   `json:"total_wait_seconds"`
		AvgWaitSeconds   float64 `json:"avg_wait_seconds"`

		TotalSessionSeconds int64   `json:"total_session_seconds"`
		SessionDays         int     `json:"session_days"`
		AvgSessionSeconds   float64 `json:"avg_session_seconds"`

		RecordCount   int       `json:"record_count"`
		LastUpdatedAt time.Time `json:"last_updated_at"`
	}

	// TopArrival is a car that reached at least one daily top of a campus during a month.
	// Position is its best daily rank until the leaderboard is ranked, then its leaderboard rank.
	TopArrival struct {
		ID             string    `json:"id"`
		CampusLocation string    `json:"campus_location"`
		Month          string    `json:"month"`
		CarNumber      int       `json:"car_number"`
		QueuedAt       int64     `json:"queued_at"`
		StudentNames   []string  `json:"student_names"`
		Surnames       []string  `json:"surnames,omitempty"`
		Appearances    int       `json:"appearances"`
		Position       int       `json:"position"`
		LastUpdatedAt  time.Time `json:"last_updated_at"`
	}

	// DailyArrival is one entry of the earliest queued cars of a campus on one day.
	DailyArrival struct {
		CampusLocation string
		Date           string
		CarNumber      int
		QueuedAt       int64
		StudentNames   []string
		Position       int
	}

	ProcessedDate struct {
		CampusLocation string    `json:"campus_location"`
		Date           string    `json:"date"`
		ProcessedAt    time.Time `json:"processed_at"`
	}

	// Leaderboard is the ranked top arrivals of one campus for one month.
	Leaderboard struct {
		CampusLocation string       `json:"campus_location"`
		Month          string       `json:"month"`
		Arrivals       []TopArrival `json:"arrivals"`
	}

	CampusActivity struct {
		Rank           int    `json:"rank"`
		CampusLocation string `json:"campus_location"`
		TotalEvents    int    `json:"total_events"`
		TotalStudents  int    `json:"total_students"`
	}

	CampusActivityRanking struct {
		Month  string           `json:"month"`
		Podium []CampusActivity `json:"podium"`
		Others []CampusActivity `json:"others"`
	}

	// ClearResult reports how many rows were deleted per derived table.
	ClearResult struct {
		Metrics        int64 `json:"metrics"`
		TopArrivals    int64 `json:"top_arrivals"`
		ProcessedDates int64 `json:"processed_dates"`
	}

	// Filter narrows queries. Empty fields match everything.
	Filter struct {
		Campus string
		Month  string
	}

	// Store persists derived state. Upserts replace the row with the same key.
	Store interface {
		// QueryMetrics returns metrics of the given type, sorted by campus then month.
		QueryMetrics(ctx context.Context, metricType string, f Filter) ([]DashboardMetric, error)
		// UpsertMetrics writes metrics keyed by (type, campus, month).
		UpsertMetrics(ctx context.Context, metrics ...DashboardMetric) error
		// QueryTopArrivals returns entries sorted by campus, month then car number.
		QueryTopArrivals(ctx context.Context, f Filter) ([]TopArrival, error)
		// UpsertTopArrivals writes entries keyed by (campus, month, car number).
		UpsertTopArrivals(ctx context.Context, arrivals ...TopArrival) error
		// QueryProcessedDates returns markers sorted by campus then date.
		QueryProcessedDates(ctx context.Context) ([]ProcessedDate, error)
		// MarkProcessedDates writes markers keyed by (campus, date).
		MarkProcessedDates(ctx context.Context, dates ...ProcessedDate) error
		// Clear deletes every metric, top arrival and processed date.
		Clear(ctx context.Context) (ClearResult, error)
	}
)

func (f Filter) Matches(campus, month string) bool {
	return (f.Campus == "" || f.Campus == campus) && (f.Month == "" || f.Month == month)
}
