package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
	inmemdb "github.com/trezcool/dismissal/storage/database/inmem"
	testutil "github.com/trezcool/dismissal/tests"
)

var fixedNow = time.Date(2024, time.April, 2, 6, 0, 0, 0, time.UTC)

type runRecorder struct {
	results []metrics.RunResult
	errs    []error
}

func (r *runRecorder) AggregationFinished(res metrics.RunResult, err error) {
	r.results = append(r.results, res)
	r.errs = append(r.errs, err)
}

type failingEvents struct{ err error }

func (r failingEvents) QueryAllEvents(context.Context) ([]dismissal.Event, error) { return nil, r.err }
func (r failingEvents) CreateEvents(context.Context, ...dismissal.Event) ([]dismissal.Event, error) {
	return nil, r.err
}

func setUp(t *testing.T) (*inmemdb.DB, dismissal.Repository, metrics.Store) {
	t.Helper()
	metrics.NowFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() { metrics.NowFunc = time.Now })

	db := inmemdb.Open()
	return db, inmemdb.NewEventRepository(db), inmemdb.NewMetricsStore(db)
}

func TestBuildMetrics(t *testing.T) {
	mon := testutil.Day(2024, time.March, 4, 15, 0)
	tue := testutil.Day(2024, time.March, 5, 14, 30)
	events := []dismissal.Event{
		testutil.Event("Main", 1, mon, 100, "Ada Lovelace", "Byron Lovelace"),
		testutil.Event("Main", 2, mon.Add(10*time.Minute), 200),
		testutil.Event("Main", 3, tue, 300),
		testutil.Event("North", 4, mon, 50),
	}

	ms := metrics.BuildMetrics(events, fixedNow)

	require.Len(t, ms, 6)
	assert.Equal(t, metrics.DashboardMetric{
		MetricType:     metrics.TypeCampusActivity,
		CampusLocation: "Main",
		Month:          "2024-03",
		TotalEvents:    3,
		TotalStudents:  4,
		RecordCount:    3,
		LastUpdatedAt:  fixedNow,
	}, ms[0])
	assert.Equal(t, "North", ms[1].CampusLocation)
	assert.Equal(t, metrics.DashboardMetric{
		MetricType:       metrics.TypeAvgWaitTime,
		CampusLocation:   "Main",
		Month:            "2024-03",
		TotalWaitSeconds: 600,
		AvgWaitSeconds:   200,
		RecordCount:      3,
		LastUpdatedAt:    fixedNow,
	}, ms[2])
	assert.Equal(t, metrics.DashboardMetric{
		MetricType:          metrics.TypeSessionDuration,
		CampusLocation:      "Main",
		Month:               "2024-03",
		TotalSessionSeconds: 800 + 300, // monday 15:00 to 15:13:20, tuesday one event
		SessionDays:         2,
		AvgSessionSeconds:   550,
		RecordCount:         3,
		LastUpdatedAt:       fixedNow,
	}, ms[4])
}

func TestBuildMetrics_averagesAreRounded(t *testing.T) {
	at := testutil.Day(2024, time.March, 4, 15, 0)
	events := []dismissal.Event{
		testutil.Event("Main", 1, at, 10),
		testutil.Event("Main", 2, at, 10),
		testutil.Event("Main", 3, at, 11),
	}

	ms := metrics.BuildMetrics(events, fixedNow)

	assert.Equal(t, 10.33, ms[1].AvgWaitSeconds)
}

func TestAggregator_Run(t *testing.T) {
	_, events, store := setUp(t)
	th := core.DefaultQualityThresholds()
	rec := new(runRecorder)
	agg := metrics.NewAggregator(events, store, th, new(testutil.Logger), rec)
	ctx := context.Background()

	// car 7 is first on three days, car 8 second on all four
	for d := 4; d <= 7; d++ {
		at := testutil.Day(2024, time.March, d, 15, 0)
		if d != 7 {
			testutil.CreateEvents(t, events, testutil.Event("Main", 7, at, 60, "Ada Lovelace"))
		}
		testutil.CreateEvents(t, events,
			testutil.Event("Main", 8, at.Add(time.Minute), 60),
			testutil.Event("Main", 100+d, at.Add(time.Hour), 60),
		)
	}

	res, err := agg.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 11, res.Events)
	assert.Equal(t, 3, res.Metrics)
	assert.Equal(t, 6, res.TopArrivals) // cars 7, 8 and 104..107
	assert.Equal(t, 4, res.ProcessedDates)
	require.Len(t, rec.results, 1)
	assert.NoError(t, rec.errs[0])

	stored, err := store.QueryTopArrivals(ctx, metrics.Filter{Campus: "Main", Month: "2024-03"})
	require.NoError(t, err)
	board := metrics.RankTopArrivals(stored, th.TopArrivalsLimit)
	require.Len(t, board, 5)
	assert.Equal(t, 8, board[0].CarNumber) // four appearances beat three first places
	assert.Equal(t, 4, board[0].Appearances)
	assert.Equal(t, 7, board[1].CarNumber)
	assert.Equal(t, 3, board[1].Appearances)

	dates, err := store.QueryProcessedDates(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 4)
	assert.Equal(t, "2024-03-04", dates[0].Date)
	assert.Equal(t, fixedNow, dates[0].ProcessedAt)
}

func TestAggregator_Run_isIdempotent(t *testing.T) {
	_, events, store := setUp(t)
	agg := metrics.NewAggregator(events, store, core.DefaultQualityThresholds(), new(testutil.Logger), nil)
	ctx := context.Background()
	testutil.CreateEvents(t, events,
		testutil.Event("Main", 1, testutil.Day(2024, time.March, 4, 15, 0), 60),
		testutil.Event("Main", 2, testutil.Day(2024, time.March, 4, 15, 1), 60),
	)

	_, err := agg.Run(ctx)
	require.NoError(t, err)
	first, err := store.QueryMetrics(ctx, metrics.TypeCampusActivity, metrics.Filter{})
	require.NoError(t, err)

	_, err = agg.Run(ctx)
	require.NoError(t, err)
	second, err := store.QueryMetrics(ctx, metrics.TypeCampusActivity, metrics.Filter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].TotalEvents)
}

func TestAggregator_Run_retiresDisplacedCars(t *testing.T) {
	_, events, store := setUp(t)
	th := core.DefaultQualityThresholds()
	th.DailyTopArrivals = 1
	agg := metrics.NewAggregator(events, store, th, new(testutil.Logger), nil)
	ctx := context.Background()
	at := testutil.Day(2024, time.March, 4, 15, 0)

	testutil.CreateEvents(t, events, testutil.Event("Main", 5, at, 60))
	_, err := agg.Run(ctx)
	require.NoError(t, err)

	testutil.CreateEvents(t, events, testutil.Event("Main", 6, at.Add(-time.Minute), 60))
	res, err := agg.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RetiredEntries)

	stored, err := store.QueryTopArrivals(ctx, metrics.Filter{})
	require.NoError(t, err)
	board := metrics.RankTopArrivals(stored, th.TopArrivalsLimit)
	require.Len(t, board, 1)
	assert.Equal(t, 6, board[0].CarNumber)
}

func TestAggregator_Run_propagatesErrors(t *testing.T) {
	_, _, store := setUp(t)
	boom := errors.New("db down")
	rec := new(runRecorder)
	agg := metrics.NewAggregator(failingEvents{err: boom}, store, core.DefaultQualityThresholds(), new(testutil.Logger), rec)

	_, err := agg.Run(context.Background())

	assert.Equal(t, boom, errors.Cause(err))
	require.Len(t, rec.errs, 1)
	assert.Error(t, rec.errs[0])
}

type unmigratedStore struct {
	metrics.Store
}

func (unmigratedStore) MarkProcessedDates(context.Context, ...metrics.ProcessedDate) error {
	return core.NewShutdownError(errors.New(`relation "processed_date" does not exist`), "marking processed dates")
}

func TestAggregator_Run_schemaMismatchIsFatal(t *testing.T) {
	_, events, store := setUp(t)
	testutil.CreateEvents(t, events, testutil.Event("Main", 1, testutil.Day(2024, time.March, 4, 15, 0), 60))
	agg := metrics.NewAggregator(events, unmigratedStore{store}, core.DefaultQualityThresholds(), new(testutil.Logger), nil)

	res, err := agg.Run(context.Background())

	require.Error(t, err)
	assert.True(t, core.IsShutdown(err))
	assert.Equal(t, 3, res.Metrics)
	assert.Zero(t, res.ProcessedDates)
}
