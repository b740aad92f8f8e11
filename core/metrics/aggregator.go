package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
)

// RunResult summarizes one aggregation run.
type RunResult struct {
	Events         int           `json:"events"`
	Metrics        int           `json:"metrics"`
	TopArrivals    int           `json:"top_arrivals"`
	RetiredEntries int           `json:"retired_entries"`
	ProcessedDates int           `json:"processed_dates"`
	Duration       time.Duration `json:"duration"`
}

// RunObserver is notified at the end of every aggregation run.
type RunObserver interface {
	AggregationFinished(res RunResult, err error)
}

type Aggregator struct {
	events   dismissal.Repository
	store    Store
	th       core.QualityThresholds
	logger   core.Logger
	observer RunObserver
}

func NewAggregator(events dismissal.Repository, store Store, th core.QualityThresholds, logger core.Logger, observer RunObserver) *Aggregator {
	return &Aggregator{events: events, store: store, th: th, logger: logger, observer: observer}
}

// Run recomputes every derived metric and top arrival from the full event collection.
func (a *Aggregator) Run(ctx context.Context) (res RunResult, err error) {
	start := NowFunc()
	defer func() {
		res.Duration = NowFunc().Sub(start)
		if a.observer != nil {
			a.observer.AggregationFinished(res, err)
		}
	}()

	events, err := a.events.QueryAllEvents(ctx)
	if err != nil {
		return res, errors.Wrap(err, "querying dismissal events")
	}
	res.Events = len(events)
	now := start.UTC()

	metrics := BuildMetrics(events, now)
	if err = a.store.UpsertMetrics(ctx, metrics...); err != nil {
		return res, errors.Wrap(err, "upserting metrics")
	}
	res.Metrics = len(metrics)

	arrivals := MergeDaily(DailyTopArrivals(events, a.th.DailyTopArrivals))
	retired, err := a.retiredArrivals(ctx, arrivals)
	if err != nil {
		return res, err
	}
	for i := range arrivals {
		arrivals[i].LastUpdatedAt = now
	}
	for i := range retired {
		retired[i].LastUpdatedAt = now
	}
	if err = a.store.UpsertTopArrivals(ctx, append(arrivals, retired...)...); err != nil {
		return res, errors.Wrap(err, "upserting top arrivals")
	}
	res.TopArrivals = len(arrivals)
	res.RetiredEntries = len(retired)

	dates := processedDates(events, now)
	if err = a.store.MarkProcessedDates(ctx, dates...); err != nil {
		return res, errors.Wrap(err, "marking processed dates")
	}
	res.ProcessedDates = len(dates)

	a.logger.Info(fmt.Sprintf(
		"aggregated %d events into %d metrics and %d top arrivals", res.Events, res.Metrics, res.TopArrivals,
	))
	return res, nil
}

// retiredArrivals returns stored entries that no longer reach any daily top, with their appearances reset.
func (a *Aggregator) retiredArrivals(ctx context.Context, current []TopArrival) ([]TopArrival, error) {
	stored, err := a.store.QueryTopArrivals(ctx, Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying top arrivals")
	}
	type key struct {
		campus, month string
		car           int
	}
	live := make(map[key]bool, len(current))
	for _, t := range current {
		live[key{t.CampusLocation, t.Month, t.CarNumber}] = true
	}

	var retired []TopArrival
	for _, t := range stored {
		if t.Appearances == 0 || live[key{t.CampusLocation, t.Month, t.CarNumber}] {
			continue
		}
		t.Appearances = 0
		retired = append(retired, t)
	}
	return retired, nil
}

// BuildMetrics reduces events into the three metric types per (campus, month), sorted by type, campus then month.
func BuildMetrics(events []dismissal.Event, now time.Time) []DashboardMetric {
	type key struct{ campus, month string }
	type bucket struct {
		events   int
		students int
		wait     int64
		days     map[string][]dismissal.Event
	}
	buckets := make(map[key]*bucket)
	keys := make([]key, 0)
	for _, e := range events {
		k := key{e.CampusLocation, e.Month()}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{days: make(map[string][]dismissal.Event)}
			buckets[k] = b
			keys = append(keys, k)
		}
		b.events++
		b.students += len(e.StudentIDs)
		b.wait += int64(e.WaitTimeSeconds)
		b.days[e.Day()] = append(b.days[e.Day()], e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].campus != keys[j].campus {
			return keys[i].campus < keys[j].campus
		}
		return keys[i].month < keys[j].month
	})

	activity := make([]DashboardMetric, 0, len(keys))
	wait := make([]DashboardMetric, 0, len(keys))
	session := make([]DashboardMetric, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		base := DashboardMetric{CampusLocation: k.campus, Month: k.month, RecordCount: b.events, LastUpdatedAt: now}

		m := base
		m.MetricType = TypeCampusActivity
		m.TotalEvents = b.events
		m.TotalStudents = b.students
		activity = append(activity, m)

		m = base
		m.MetricType = TypeAvgWaitTime
		m.TotalWaitSeconds = b.wait
		m.AvgWaitSeconds = average(b.wait, b.events)
		wait = append(wait, m)

		m = base
		m.MetricType = TypeSessionDuration
		for _, dayEvents := range b.days {
			d := dismissal.DayCampusGroup{Events: dayEvents}.SessionSeconds()
			if d <= 0 {
				continue
			}
			m.TotalSessionSeconds += d
			m.SessionDays++
		}
		m.AvgSessionSeconds = average(m.TotalSessionSeconds, m.SessionDays)
		session = append(session, m)
	}
	return append(append(activity, wait...), session...)
}

func processedDates(events []dismissal.Event, now time.Time) []ProcessedDate {
	type key struct{ campus, date string }
	seen := make(map[key]bool)
	out := make([]ProcessedDate, 0)
	for _, e := range events {
		k := key{e.CampusLocation, e.Day()}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ProcessedDate{CampusLocation: k.campus, Date: k.date, ProcessedAt: now})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CampusLocation != out[j].CampusLocation {
			return out[i].CampusLocation < out[j].CampusLocation
		}
		return out[i].Date < out[j].Date
	})
	return out
}

func average(total int64, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(n)*100) / 100
}
