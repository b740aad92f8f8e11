package dismissal

import (
	"sort"

	"github.com/trezcool/dismissal/core"
)

type (
	OutlierReport struct {
		WaitTime        WaitTimeOutliers        `json:"wait_time"`
		EventsPerDay    EventsPerDayOutliers    `json:"events_per_day"`
		SessionDuration SessionDurationOutliers `json:"session_duration"`
	}

	WaitTimeThresholds struct {
		TooShort        int     `json:"too_short"`
		TooLong         int     `json:"too_long"`
		StatisticalHigh float64 `json:"statistical_high"`
	}

	WaitTimeSample struct {
		RecordID        string `json:"record_id"`
		Date            string `json:"date"`
		CampusLocation  string `json:"campus_location"`
		CarNumber       int    `json:"car_number"`
		WaitTimeSeconds int    `json:"wait_time_seconds"`
	}

	WaitTimeOutliers struct {
		Stats                    Stats              `json:"stats"`
		Thresholds               WaitTimeThresholds `json:"thresholds"`
		TooShort                 []WaitTimeSample   `json:"too_short"`
		TooLong                  []WaitTimeSample   `json:"too_long"`
		StatisticalOutliers      []WaitTimeSample   `json:"statistical_outliers"`
		TooShortCount            int                `json:"too_short_count"`
		TooLongCount             int                `json:"too_long_count"`
		StatisticalOutliersCount int                `json:"statistical_outliers_count"`
	}

	EventsPerDayThresholds struct {
		TooFew  int `json:"too_few"`
		TooMany int `json:"too_many"`
	}

	DayCampusCount struct {
		Date           string `json:"date"`
		CampusLocation string `json:"campus_location"`
		Count          int    `json:"count"`
	}

	EventsPerDayOutliers struct {
		Stats        Stats                  `json:"stats"`
		Thresholds   EventsPerDayThresholds `json:"thresholds"`
		TooFew       []DayCampusCount       `json:"too_few"`
		TooMany      []DayCampusCount       `json:"too_many"`
		TooFewCount  int                    `json:"too_few_count"`
		TooManyCount int                    `json:"too_many_count"`
	}

	SessionDurationThresholds struct {
		TooShort int `json:"too_short"`
		TooLong  int `json:"too_long"`
	}

	DayCampusSession struct {
		Date            string `json:"date"`
		CampusLocation  string `json:"campus_location"`
		DurationSeconds int64  `json:"duration_seconds"`
		EventCount      int    `json:"event_count"`
	}

	SessionDurationOutliers struct {
		Stats         Stats                     `json:"stats"`
		Thresholds    SessionDurationThresholds `json:"thresholds"`
		TooShort      []DayCampusSession        `json:"too_short"`
		TooLong       []DayCampusSession        `json:"too_long"`
		TooShortCount int                       `json:"too_short_count"`
		TooLongCount  int                       `json:"too_long_count"`
	}
)

// DetectOutliers runs the wait time, events per day and session duration analyses.
// Records flagged by the integrity validator are included.
func DetectOutliers(events []Event, th core.QualityThresholds) OutlierReport {
	groups := GroupByDayCampus(events)
	return OutlierReport{
		WaitTime:        detectWaitTimeOutliers(events, th),
		EventsPerDay:    detectEventsPerDayOutliers(groups, th),
		SessionDuration: detectSessionOutliers(groups, th),
	}
}

func detectWaitTimeOutliers(events []Event, th core.QualityThresholds) WaitTimeOutliers {
	values := make([]float64, 0, len(events))
	for _, e := range events {
		values = append(values, float64(e.WaitTimeSeconds))
	}
	stats := ComputeStats(values)

	out := WaitTimeOutliers{
		Stats: stats,
		Thresholds: WaitTimeThresholds{
			TooShort:        th.WaitTooShortSeconds,
			TooLong:         th.WaitTooLongSeconds,
			StatisticalHigh: stats.Mean + th.StdDevMultiplier*stats.StdDev,
		},
		TooShort:            make([]WaitTimeSample, 0),
		TooLong:             make([]WaitTimeSample, 0),
		StatisticalOutliers: make([]WaitTimeSample, 0),
	}
	if stats.Count == 0 {
		return out
	}

	for _, e := range events {
		sample := WaitTimeSample{
			RecordID:        e.ID,
			Date:            e.Date,
			CampusLocation:  e.CampusLocation,
			CarNumber:       e.CarNumber,
			WaitTimeSeconds: e.WaitTimeSeconds,
		}
		if e.WaitTimeSeconds < th.WaitTooShortSeconds {
			out.TooShortCount++
			out.TooShort = appendCapped(out.TooShort, sample, th.SampleLimit)
		}
		if e.WaitTimeSeconds > th.WaitTooLongSeconds {
			out.TooLongCount++
			out.TooLong = appendCapped(out.TooLong, sample, th.SampleLimit)
		}
		if float64(e.WaitTimeSeconds) > out.Thresholds.StatisticalHigh {
			out.StatisticalOutliersCount++
			out.StatisticalOutliers = appendCapped(out.StatisticalOutliers, sample, th.SampleLimit)
		}
	}
	return out
}

func detectEventsPerDayOutliers(groups []DayCampusGroup, th core.QualityThresholds) EventsPerDayOutliers {
	out := EventsPerDayOutliers{
		Thresholds: EventsPerDayThresholds{TooFew: th.EventsPerDayTooFew, TooMany: th.EventsPerDayTooMany},
		TooFew:     make([]DayCampusCount, 0),
		TooMany:    make([]DayCampusCount, 0),
	}

	counts := make([]float64, 0, len(groups))
	for _, g := range groups {
		n := len(g.Events)
		counts = append(counts, float64(n))
		c := DayCampusCount{Date: g.Date, CampusLocation: g.CampusLocation, Count: n}
		if n < th.EventsPerDayTooFew {
			out.TooFewCount++
			out.TooFew = appendCapped(out.TooFew, c, th.SampleLimit)
		}
		if n > th.EventsPerDayTooMany {
			out.TooManyCount++
			out.TooMany = appendCapped(out.TooMany, c, th.SampleLimit)
		}
	}
	out.Stats = ComputeStats(counts)
	return out
}

func detectSessionOutliers(groups []DayCampusGroup, th core.QualityThresholds) SessionDurationOutliers {
	out := SessionDurationOutliers{
		Thresholds: SessionDurationThresholds{TooShort: th.SessionTooShortSeconds, TooLong: th.SessionTooLongSeconds},
		TooShort:   make([]DayCampusSession, 0),
		TooLong:    make([]DayCampusSession, 0),
	}

	durations := make([]float64, 0, len(groups))
	for _, g := range groups {
		d := g.SessionSeconds()
		if d <= 0 {
			continue
		}
		durations = append(durations, float64(d))
		s := DayCampusSession{Date: g.Date, CampusLocation: g.CampusLocation, DurationSeconds: d, EventCount: len(g.Events)}
		if d < int64(th.SessionTooShortSeconds) {
			out.TooShortCount++
			out.TooShort = appendCapped(out.TooShort, s, th.SampleLimit)
		}
		if d > int64(th.SessionTooLongSeconds) {
			out.TooLongCount++
			out.TooLong = appendCapped(out.TooLong, s, th.SampleLimit)
		}
	}
	out.Stats = ComputeStats(durations)
	return out
}

// DayCampusGroup holds the events recorded for one (date, campus) pair, using raw values.
type DayCampusGroup struct {
	Date           string
	CampusLocation string
	Events         []Event
}

// SessionSeconds is the span between the first queue and the last completion of the group.
func (g DayCampusGroup) SessionSeconds() int64 {
	if len(g.Events) == 0 {
		return 0
	}
	minQueued, maxCompleted := g.Events[0].QueuedAt, g.Events[0].CompletedAt
	for _, e := range g.Events[1:] {
		if e.QueuedAt < minQueued {
			minQueued = e.QueuedAt
		}
		if e.CompletedAt > maxCompleted {
			maxCompleted = e.CompletedAt
		}
	}
	return elapsedSeconds(minQueued, maxCompleted)
}

// GroupByDayCampus groups events by (date, campus), sorted by date then campus.
func GroupByDayCampus(events []Event) []DayCampusGroup {
	type key struct{ date, campus string }
	idx := make(map[key]int)
	groups := make([]DayCampusGroup, 0)
	for _, e := range events {
		k := key{e.Date, e.CampusLocation}
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, DayCampusGroup{Date: e.Date, CampusLocation: e.CampusLocation})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Date != groups[j].Date {
			return groups[i].Date < groups[j].Date
		}
		return groups[i].CampusLocation < groups[j].CampusLocation
	})
	return groups
}

func appendCapped[T any](list []T, item T, limit int) []T {
	if limit > 0 && len(list) >= limit {
		return list
	}
	return append(list, item)
}
