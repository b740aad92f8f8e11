package inmemdb

import (
	"sync"

	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
)

type (
	// DB keeps every table in memory. It backs tests and local demos.
	DB struct {
		event      *eventTable
		metric     *metricTable
		topArrival *topArrivalTable
		processed  *processedTable
	}

	eventTable struct {
		mutex sync.RWMutex
		table []dismissal.Event
	}

	metricKey struct {
		metricType, campus, month string
	}
	metricTable struct {
		mutex sync.RWMutex
		table map[metricKey]metrics.DashboardMetric
	}

	topArrivalKey struct {
		campus, month string
		car           int
	}
	topArrivalTable struct {
		mutex sync.RWMutex
		table map[topArrivalKey]metrics.TopArrival
	}

	processedKey struct {
		campus, date string
	}
	processedTable struct {
		mutex sync.RWMutex
		table map[processedKey]metrics.ProcessedDate
	}
)

func Open() *DB {
	return &DB{
		event:      &eventTable{},
		metric:     &metricTable{table: make(map[metricKey]metrics.DashboardMetric)},
		topArrival: &topArrivalTable{table: make(map[topArrivalKey]metrics.TopArrival)},
		processed:  &processedTable{table: make(map[processedKey]metrics.ProcessedDate)},
	}
}
