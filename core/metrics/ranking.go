package metrics

import (
	"sort"

	"github.com/trezcool/dismissal/core/dismissal"
)

const podiumSize = 3

// DailyTopArrivals returns, per (campus, day), the n earliest queued cars ranked 1..n.
// A car queued several times on one day keeps its earliest arrival.
func DailyTopArrivals(events []dismissal.Event, n int) []DailyArrival {
	type key struct{ campus, day string }
	byDay := make(map[key][]dismissal.Event)
	keys := make([]key, 0)
	for _, e := range events {
		k := key{e.CampusLocation, e.Day()}
		if _, ok := byDay[k]; !ok {
			keys = append(keys, k)
		}
		byDay[k] = append(byDay[k], e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].campus != keys[j].campus {
			return keys[i].campus < keys[j].campus
		}
		return keys[i].day < keys[j].day
	})

	out := make([]DailyArrival, 0)
	for _, k := range keys {
		day := append([]dismissal.Event(nil), byDay[k]...)
		sort.SliceStable(day, func(i, j int) bool {
			if day[i].QueuedAt != day[j].QueuedAt {
				return day[i].QueuedAt < day[j].QueuedAt
			}
			return day[i].CarNumber < day[j].CarNumber
		})

		seen := make(map[int]bool)
		for _, e := range day {
			if len(seen) >= n {
				break
			}
			if seen[e.CarNumber] {
				continue
			}
			seen[e.CarNumber] = true
			out = append(out, DailyArrival{
				CampusLocation: k.campus,
				Date:           k.day,
				CarNumber:      e.CarNumber,
				QueuedAt:       e.QueuedAt,
				StudentNames:   e.StudentNames,
				Position:       len(seen),
			})
		}
	}
	return out
}

// MergeDaily folds daily entries into one TopArrival per (campus, month, car).
// Appearances counts distinct days, Position keeps the best daily rank and QueuedAt the arrival
// that earned it. Student names are unioned in day order.
func MergeDaily(daily []DailyArrival) []TopArrival {
	type key struct {
		campus, month string
		car           int
	}
	type acc struct {
		entry TopArrival
		days  map[string]bool
		names map[string]bool
	}
	byKey := make(map[key]*acc)
	keys := make([]key, 0)

	sorted := append([]DailyArrival(nil), daily...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	for _, d := range sorted {
		k := key{d.CampusLocation, monthOf(d.Date), d.CarNumber}
		a, ok := byKey[k]
		if !ok {
			a = &acc{
				entry: TopArrival{
					CampusLocation: k.campus,
					Month:          k.month,
					CarNumber:      k.car,
					QueuedAt:       d.QueuedAt,
					StudentNames:   make([]string, 0),
					Position:       d.Position,
				},
				days:  make(map[string]bool),
				names: make(map[string]bool),
			}
			byKey[k] = a
			keys = append(keys, k)
		}
		if !a.days[d.Date] {
			a.days[d.Date] = true
			a.entry.Appearances++
		}
		if d.Position < a.entry.Position || (d.Position == a.entry.Position && d.QueuedAt < a.entry.QueuedAt) {
			a.entry.Position = d.Position
			a.entry.QueuedAt = d.QueuedAt
		}
		for _, n := range d.StudentNames {
			if !a.names[n] {
				a.names[n] = true
				a.entry.StudentNames = append(a.entry.StudentNames, n)
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].campus != keys[j].campus {
			return keys[i].campus < keys[j].campus
		}
		if keys[i].month != keys[j].month {
			return keys[i].month < keys[j].month
		}
		return keys[i].car < keys[j].car
	})
	out := make([]TopArrival, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k].entry)
	}
	return out
}

// RankTopArrivals orders entries by appearances desc, position asc, queuedAt asc then car number asc,
// keeps the first limit and renumbers their positions from 1.
// Entries with no appearances are skipped.
func RankTopArrivals(entries []TopArrival, limit int) []TopArrival {
	ranked := make([]TopArrival, 0, len(entries))
	for _, e := range entries {
		if e.Appearances > 0 {
			ranked = append(ranked, e)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.Appearances != b.Appearances:
			return a.Appearances > b.Appearances
		case a.Position != b.Position:
			return a.Position < b.Position
		case a.QueuedAt != b.QueuedAt:
			return a.QueuedAt < b.QueuedAt
		default:
			return a.CarNumber < b.CarNumber
		}
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}

// RankCampusActivity orders campus activity metrics by total events desc then campus name,
// the first three forming the podium. Metrics of the same campus are summed.
func RankCampusActivity(month string, activity []DashboardMetric) CampusActivityRanking {
	byCampus := make(map[string]*CampusActivity)
	for _, m := range activity {
		if m.MetricType != TypeCampusActivity || (month != "" && m.Month != month) {
			continue
		}
		c, ok := byCampus[m.CampusLocation]
		if !ok {
			c = &CampusActivity{CampusLocation: m.CampusLocation}
			byCampus[m.CampusLocation] = c
		}
		c.TotalEvents += m.TotalEvents
		c.TotalStudents += m.TotalStudents
	}

	list := make([]CampusActivity, 0, len(byCampus))
	for _, c := range byCampus {
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].TotalEvents != list[j].TotalEvents {
			return list[i].TotalEvents > list[j].TotalEvents
		}
		return list[i].CampusLocation < list[j].CampusLocation
	})
	for i := range list {
		list[i].Rank = i + 1
	}

	ranking := CampusActivityRanking{Month: month, Podium: list, Others: make([]CampusActivity, 0)}
	if len(list) > podiumSize {
		ranking.Podium = list[:podiumSize]
		ranking.Others = list[podiumSize:]
	}
	return ranking
}

func monthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
