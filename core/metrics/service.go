package metrics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core"
)

// Service serves dashboard metrics. Aggregate and ClearDerivedData never run concurrently.
type Service struct {
	mu     sync.Mutex
	store  Store
	agg    *Aggregator
	th     core.QualityThresholds
	logger core.Logger
}

func NewService(store Store, agg *Aggregator, th core.QualityThresholds, logger core.Logger) *Service {
	return &Service{store: store, agg: agg, th: th, logger: logger}
}

func (svc *Service) Aggregate(ctx context.Context) (RunResult, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.agg.Run(ctx)
}

// ClearDerivedData deletes every derived metric, top arrival and processed date.
func (svc *Service) ClearDerivedData(ctx context.Context) (ClearResult, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	res, err := svc.store.Clear(ctx)
	if err != nil {
		return ClearResult{}, errors.Wrap(err, "clearing derived data")
	}
	svc.logger.Warn(fmt.Sprintf(
		"cleared %d metrics, %d top arrivals and %d processed dates", res.Metrics, res.TopArrivals, res.ProcessedDates,
	))
	return res, nil
}

func (svc *Service) GetCampusActivity(ctx context.Context, f Filter) ([]DashboardMetric, error) {
	return svc.queryMetrics(ctx, TypeCampusActivity, f)
}

func (svc *Service) GetAverageWaitTime(ctx context.Context, f Filter) ([]DashboardMetric, error) {
	return svc.queryMetrics(ctx, TypeAvgWaitTime, f)
}

func (svc *Service) GetSessionDuration(ctx context.Context, f Filter) ([]DashboardMetric, error) {
	return svc.queryMetrics(ctx, TypeSessionDuration, f)
}

func (svc *Service) queryMetrics(ctx context.Context, metricType string, f Filter) ([]DashboardMetric, error) {
	ms, err := svc.store.QueryMetrics(ctx, metricType, f)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s metrics", metricType)
	}
	return ms, nil
}

// GetTopArrivals returns one ranked leaderboard per (campus, month) matching the filter.
func (svc *Service) GetTopArrivals(ctx context.Context, f Filter) ([]Leaderboard, error) {
	entries, err := svc.store.QueryTopArrivals(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "querying top arrivals")
	}

	type key struct{ campus, month string }
	buckets := make(map[key][]TopArrival)
	for _, e := range entries {
		k := key{e.CampusLocation, e.Month}
		buckets[k] = append(buckets[k], e)
	}

	boards := make([]Leaderboard, 0, len(buckets))
	for k, bucket := range buckets {
		ranked := RankTopArrivals(bucket, svc.th.TopArrivalsLimit)
		if len(ranked) == 0 {
			continue
		}
		for i := range ranked {
			ranked[i].Surnames = FormatSurnames(ranked[i].StudentNames)
		}
		boards = append(boards, Leaderboard{CampusLocation: k.campus, Month: k.month, Arrivals: ranked})
	}
	sort.Slice(boards, func(i, j int) bool {
		if boards[i].CampusLocation != boards[j].CampusLocation {
			return boards[i].CampusLocation < boards[j].CampusLocation
		}
		return boards[i].Month < boards[j].Month
	})
	return boards, nil
}

// GetAllCampusActivity ranks every campus by activity for the month, or over all months when month is empty.
func (svc *Service) GetAllCampusActivity(ctx context.Context, month string) (CampusActivityRanking, error) {
	ms, err := svc.queryMetrics(ctx, TypeCampusActivity, Filter{Month: month})
	if err != nil {
		return CampusActivityRanking{}, err
	}
	return RankCampusActivity(month, ms), nil
}
