package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/dismissal/core/metrics"
)

type metricsStore struct {
	db *DB
}

var _ metrics.Store = (*metricsStore)(nil)

func NewMetricsStore(db *DB) *metricsStore {
	return &metricsStore{db: db}
}

func (s *metricsStore) QueryMetrics(_ context.Context, metricType string, f metrics.Filter) ([]metrics.DashboardMetric, error) {
	t := s.db.metric
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	out := make([]metrics.DashboardMetric, 0)
	for k, m := range t.table {
		if k.metricType == metricType && f.Matches(k.campus, k.month) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CampusLocation != out[j].CampusLocation {
			return out[i].CampusLocation < out[j].CampusLocation
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (s *metricsStore) UpsertMetrics(_ context.Context, ms ...metrics.DashboardMetric) error {
	t := s.db.metric
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, m := range ms {
		k := metricKey{m.MetricType, m.CampusLocation, m.Month}
		if old, ok := t.table[k]; ok {
			m.ID = old.ID
		} else if m.ID == "" {
			m.ID = uuid.New().String()
		}
		t.table[k] = m
	}
	return nil
}

func (s *metricsStore) QueryTopArrivals(_ context.Context, f metrics.Filter) ([]metrics.TopArrival, error) {
	t := s.db.topArrival
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	out := make([]metrics.TopArrival, 0)
	for k, a := range t.table {
		if f.Matches(k.campus, k.month) {
			a.StudentNames = append([]string(nil), a.StudentNames...)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CampusLocation != b.CampusLocation {
			return a.CampusLocation < b.CampusLocation
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.CarNumber < b.CarNumber
	})
	return out, nil
}

func (s *metricsStore) UpsertTopArrivals(_ context.Context, arrivals ...metrics.TopArrival) error {
	t := s.db.topArrival
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, a := range arrivals {
		k := topArrivalKey{a.CampusLocation, a.Month, a.CarNumber}
		if old, ok := t.table[k]; ok {
			a.ID = old.ID
		} else if a.ID == "" {
			a.ID = uuid.New().String()
		}
		a.StudentNames = append([]string(nil), a.StudentNames...)
		a.Surnames = nil
		t.table[k] = a
	}
	return nil
}

func (s *metricsStore) QueryProcessedDates(context.Context) ([]metrics.ProcessedDate, error) {
	t := s.db.processed
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	out := make([]metrics.ProcessedDate, 0, len(t.table))
	for _, d := range t.table {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CampusLocation != out[j].CampusLocation {
			return out[i].CampusLocation < out[j].CampusLocation
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

func (s *metricsStore) MarkProcessedDates(_ context.Context, dates ...metrics.ProcessedDate) error {
	t := s.db.processed
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, d := range dates {
		t.table[processedKey{d.CampusLocation, d.Date}] = d
	}
	return nil
}

// Clear empties the derived tables, locking them in a fixed order.
func (s *metricsStore) Clear(context.Context) (metrics.ClearResult, error) {
	s.db.metric.mutex.Lock()
	defer s.db.metric.mutex.Unlock()
	s.db.topArrival.mutex.Lock()
	defer s.db.topArrival.mutex.Unlock()
	s.db.processed.mutex.Lock()
	defer s.db.processed.mutex.Unlock()

	res := metrics.ClearResult{
		Metrics:        int64(len(s.db.metric.table)),
		TopArrivals:    int64(len(s.db.topArrival.table)),
		ProcessedDates: int64(len(s.db.processed.table)),
	}
	s.db.metric.table = make(map[metricKey]metrics.DashboardMetric)
	s.db.topArrival.table = make(map[topArrivalKey]metrics.TopArrival)
	s.db.processed.table = make(map[processedKey]metrics.ProcessedDate)
	return res, nil
}
