package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/metrics"
)

// metricRow leaves the columns that do not apply to the metric type NULL.
type metricRow struct {
	ID                  string       `db:"id"`
	MetricType          string       `db:"metric_type"`
	CampusLocation      string       `db:"campus_location"`
	Month               string       `db:"month"`
	TotalEvents         null.Int     `db:"total_events"`
	TotalStudents       null.Int     `db:"total_students"`
	TotalWaitSeconds    null.Int64   `db:"total_wait_seconds"`
	AvgWaitSeconds      null.Float64 `db:"avg_wait_seconds"`
	TotalSessionSeconds null.Int64   `db:"total_session_seconds"`
	SessionDays         null.Int     `db:"session_days"`
	AvgSessionSeconds   null.Float64 `db:"avg_session_seconds"`
	RecordCount         int          `db:"record_count"`
	LastUpdatedAt       time.Time    `db:"last_updated_at"`
}

func toMetricRow(m metrics.DashboardMetric) metricRow {
	r := metricRow{
		ID:             m.ID,
		MetricType:     m.MetricType,
		CampusLocation: m.CampusLocation,
		Month:          m.Month,
		RecordCount:    m.RecordCount,
		LastUpdatedAt:  m.LastUpdatedAt.UTC(),
	}
	switch m.MetricType {
	case metrics.TypeCampusActivity:
		r.TotalEvents = null.IntFrom(m.TotalEvents)
		r.TotalStudents = null.IntFrom(m.TotalStudents)
	case metrics.TypeAvgWaitTime:
		r.TotalWaitSeconds = null.Int64From(m.TotalWaitSeconds)
		r.AvgWaitSeconds = null.Float64From(m.AvgWaitSeconds)
	case metrics.TypeSessionDuration:
		r.TotalSessionSeconds = null.Int64From(m.TotalSessionSeconds)
		r.SessionDays = null.IntFrom(m.SessionDays)
		r.AvgSessionSeconds = null.Float64From(m.AvgSessionSeconds)
	}
	return r
}

func (r metricRow) metric() metrics.DashboardMetric {
	return metrics.DashboardMetric{
		ID:                  r.ID,
		MetricType:          r.MetricType,
		CampusLocation:      r.CampusLocation,
		Month:               r.Month,
		TotalEvents:         r.TotalEvents.Int,
		TotalStudents:       r.TotalStudents.Int,
		TotalWaitSeconds:    r.TotalWaitSeconds.Int64,
		AvgWaitSeconds:      r.AvgWaitSeconds.Float64,
		TotalSessionSeconds: r.TotalSessionSeconds.Int64,
		SessionDays:         r.SessionDays.Int,
		AvgSessionSeconds:   r.AvgSessionSeconds.Float64,
		RecordCount:         r.RecordCount,
		LastUpdatedAt:       r.LastUpdatedAt.UTC(),
	}
}

type topArrivalRow struct {
	ID             string         `db:"id"`
	CampusLocation string         `db:"campus_location"`
	Month          string         `db:"month"`
	CarNumber      int            `db:"car_number"`
	QueuedAt       int64          `db:"queued_at"`
	StudentNames   pq.StringArray `db:"student_names"`
	Appearances    int            `db:"appearances"`
	Position       int            `db:"position"`
	LastUpdatedAt  time.Time      `db:"last_updated_at"`
}

func toTopArrivalRow(a metrics.TopArrival) topArrivalRow {
	return topArrivalRow{
		ID:             a.ID,
		CampusLocation: a.CampusLocation,
		Month:          a.Month,
		CarNumber:      a.CarNumber,
		QueuedAt:       a.QueuedAt,
		StudentNames:   pq.StringArray(a.StudentNames),
		Appearances:    a.Appearances,
		Position:       a.Position,
		LastUpdatedAt:  a.LastUpdatedAt.UTC(),
	}
}

func (r topArrivalRow) topArrival() metrics.TopArrival {
	names := []string(r.StudentNames)
	if names == nil {
		names = []string{}
	}
	return metrics.TopArrival{
		ID:             r.ID,
		CampusLocation: r.CampusLocation,
		Month:          r.Month,
		CarNumber:      r.CarNumber,
		QueuedAt:       r.QueuedAt,
		StudentNames:   names,
		Appearances:    r.Appearances,
		Position:       r.Position,
		LastUpdatedAt:  r.LastUpdatedAt.UTC(),
	}
}

type processedDateRow struct {
	CampusLocation string    `db:"campus_location"`
	Date           string    `db:"date"`
	ProcessedAt    time.Time `db:"processed_at"`
}

type metricsStore struct {
	db core.DB
}

var _ metrics.Store = (*metricsStore)(nil) // interface compliance check

func NewMetricsStore(db core.DB) *metricsStore {
	return &metricsStore{db: db}
}

// filterClause appends the campus and month conditions of f to a WHERE clause.
func filterClause(where string, args []interface{}, f metrics.Filter) (string, []interface{}) {
	if f.Campus != "" {
		args = append(args, f.Campus)
		where += " AND campus_location = ?"
	}
	if f.Month != "" {
		args = append(args, f.Month)
		where += " AND month = ?"
	}
	return where, args
}

func (s metricsStore) QueryMetrics(ctx context.Context, metricType string, f metrics.Filter) ([]metrics.DashboardMetric, error) {
	where, args := filterClause("metric_type = ?", []interface{}{metricType}, f)
	q := s.db.Rebind(`SELECT id, metric_type, campus_location, month, total_events, total_students,
		total_wait_seconds, avg_wait_seconds, total_session_seconds, session_days, avg_session_seconds,
		record_count, last_updated_at
		FROM dashboard_metric WHERE ` + where + ` ORDER BY campus_location, month`)

	var rows []metricRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, dbError(err, "selecting metrics")
	}
	out := make([]metrics.DashboardMetric, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.metric())
	}
	return out, nil
}

func (s metricsStore) UpsertMetrics(ctx context.Context, ms ...metrics.DashboardMetric) error {
	q := `INSERT INTO dashboard_metric
		(id, metric_type, campus_location, month, total_events, total_students, total_wait_seconds,
		avg_wait_seconds, total_session_seconds, session_days, avg_session_seconds, record_count, last_updated_at)
		VALUES (:id, :metric_type, :campus_location, :month, :total_events, :total_students, :total_wait_seconds,
		:avg_wait_seconds, :total_session_seconds, :session_days, :avg_session_seconds, :record_count,
		:last_updated_at)
		ON CONFLICT (metric_type, campus_location, month) DO UPDATE SET
		total_events = EXCLUDED.total_events,
		total_students = EXCLUDED.total_students,
		total_wait_seconds = EXCLUDED.total_wait_seconds,
		avg_wait_seconds = EXCLUDED.avg_wait_seconds,
		total_session_seconds = EXCLUDED.total_session_seconds,
		session_days = EXCLUDED.session_days,
		avg_session_seconds = EXCLUDED.avg_session_seconds,
		record_count = EXCLUDED.record_count,
		last_updated_at = EXCLUDED.last_updated_at`

	return s.inTx(ctx, "upserting metrics", func(tx *sqlx.Tx) error {
		for _, m := range ms {
			if m.ID == "" {
				m.ID = uuid.New().String()
			}
			if _, err := tx.NamedExecContext(ctx, q, toMetricRow(m)); err != nil {
				return dbError(err, fmt.Sprintf("upserting %s metric for %q %s", m.MetricType, m.CampusLocation, m.Month))
			}
		}
		return nil
	})
}

func (s metricsStore) QueryTopArrivals(ctx context.Context, f metrics.Filter) ([]metrics.TopArrival, error) {
	where, args := filterClause("TRUE", nil, f)
	q := s.db.Rebind(`SELECT id, campus_location, month, car_number, queued_at, student_names, appearances,
		position, last_updated_at
		FROM top_arrival WHERE ` + where + ` ORDER BY campus_location, month, car_number`)

	var rows []topArrivalRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, dbError(err, "selecting top arrivals")
	}
	out := make([]metrics.TopArrival, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.topArrival())
	}
	return out, nil
}

func (s metricsStore) UpsertTopArrivals(ctx context.Context, arrivals ...metrics.TopArrival) error {
	q := `INSERT INTO top_arrival
		(id, campus_location, month, car_number, queued_at, student_names, appearances, position, last_updated_at)
		VALUES (:id, :campus_location, :month, :car_number, :queued_at, :student_names, :appearances, :position,
		:last_updated_at)
		ON CONFLICT (campus_location, month, car_number) DO UPDATE SET
		queued_at = EXCLUDED.queued_at,
		student_names = EXCLUDED.student_names,
		appearances = EXCLUDED.appearances,
		position = EXCLUDED.position,
		last_updated_at = EXCLUDED.last_updated_at`

	return s.inTx(ctx, "upserting top arrivals", func(tx *sqlx.Tx) error {
		for _, a := range arrivals {
			if a.ID == "" {
				a.ID = uuid.New().String()
			}
			if _, err := tx.NamedExecContext(ctx, q, toTopArrivalRow(a)); err != nil {
				return dbError(err, fmt.Sprintf("upserting top arrival of car %d", a.CarNumber))
			}
		}
		return nil
	})
}

func (s metricsStore) QueryProcessedDates(ctx context.Context) ([]metrics.ProcessedDate, error) {
	var rows []processedDateRow
	q := `SELECT campus_location, date, processed_at FROM processed_date ORDER BY campus_location, date`
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, dbError(err, "selecting processed dates")
	}
	out := make([]metrics.ProcessedDate, 0, len(rows))
	for _, r := range rows {
		out = append(out, metrics.ProcessedDate{CampusLocation: r.CampusLocation, Date: r.Date, ProcessedAt: r.ProcessedAt.UTC()})
	}
	return out, nil
}

func (s metricsStore) MarkProcessedDates(ctx context.Context, dates ...metrics.ProcessedDate) error {
	q := `INSERT INTO processed_date (campus_location, date, processed_at)
		VALUES (:campus_location, :date, :processed_at)
		ON CONFLICT (campus_location, date) DO UPDATE SET processed_at = EXCLUDED.processed_at`

	return s.inTx(ctx, "marking processed dates", func(tx *sqlx.Tx) error {
		for _, d := range dates {
			row := processedDateRow{CampusLocation: d.CampusLocation, Date: d.Date, ProcessedAt: d.ProcessedAt.UTC()}
			if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
				return dbError(err, fmt.Sprintf("marking %q %s as processed", d.CampusLocation, d.Date))
			}
		}
		return nil
	})
}

func (s metricsStore) Clear(ctx context.Context) (metrics.ClearResult, error) {
	var res metrics.ClearResult
	err := s.inTx(ctx, "clearing derived data", func(tx *sqlx.Tx) error {
		for _, t := range []struct {
			table string
			count *int64
		}{
			{"dashboard_metric", &res.Metrics},
			{"top_arrival", &res.TopArrivals},
			{"processed_date", &res.ProcessedDates},
		} {
			r, err := tx.ExecContext(ctx, "DELETE FROM "+t.table)
			if err != nil {
				return dbError(err, fmt.Sprintf("deleting from %s", t.table))
			}
			if *t.count, err = r.RowsAffected(); err != nil {
				return dbError(err, fmt.Sprintf("counting rows deleted from %s", t.table))
			}
		}
		return nil
	})
	if err != nil {
		return metrics.ClearResult{}, err
	}
	return res, nil
}

func (s metricsStore) inTx(ctx context.Context, action string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbError(err, fmt.Sprintf("%s: beginning transaction", action))
	}
	defer func() { _ = tx.Rollback() }()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return dbError(err, fmt.Sprintf("%s: committing", action))
	}
	return nil
}
