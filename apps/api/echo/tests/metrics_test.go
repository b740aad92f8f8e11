package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
	"github.com/trezcool/dismissal/tests"
)

func metricEvents() []dismissal.Event {
	mon := testutil.Day(2024, time.March, 4, 15, 0)
	tue := testutil.Day(2024, time.March, 5, 15, 0)
	return []dismissal.Event{
		testutil.Event("Main", 1, mon, 120, "Ada Lovelace", "Byron Lovelace"),
		testutil.Event("Main", 2, mon.Add(time.Minute), 60, "Grace Hopper"),
		testutil.Event("Main", 1, tue, 60, "Ada Lovelace"),
		testutil.Event("North", 9, mon, 300),
	}
}

func aggregate(t *testing.T, app testApp) {
	tt := httpTest{method: http.MethodPost, path: "/v1/metrics/aggregate", token: getToken(t, app.conf, admin), wantCode: http.StatusOK}
	rec := app.do(tt)
	checkCode(t, tt, rec)
}

func TestMetricsAPI_permissions(t *testing.T) {
	app := setup(t, metricEvents()...)
	studentToken := getToken(t, app.conf, student)
	teacherToken := getToken(t, app.conf, teacher)
	staffToken := getToken(t, app.conf, staff)

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/metrics/campus-activity", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student cannot view dashboard", method: http.MethodGet, path: "/v1/metrics/campus-activity", token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "teacher views dashboard", method: http.MethodGet, path: "/v1/metrics/wait-time", token: teacherToken, wantCode: http.StatusOK, wantData: []byte("[]")},
		{name: "teacher cannot aggregate", method: http.MethodPost, path: "/v1/metrics/aggregate", token: teacherToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "staff cannot clear", method: http.MethodDelete, path: "/v1/metrics", token: staffToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func TestMetricsAPI_filters(t *testing.T) {
	app := setup(t, metricEvents()...)
	token := getToken(t, app.conf, teacher)

	tests := []httpTest{
		{name: "invalid month", path: "/v1/metrics/campus-activity?month=2024-13", wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"month": "month must be a month formatted as YYYY-MM"})},
		{name: "blank campus", path: "/v1/metrics/wait-time?campus=%20%20", wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"campus": "campus cannot be blank"})},
		{name: "ranking requires month", path: "/v1/metrics/campus-activity/ranking", wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"month": "this field is required"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			tt.token = token
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func TestMetricsAPI_dashboards(t *testing.T) {
	app := setup(t, metricEvents()...)
	aggregate(t, app)
	token := getToken(t, app.conf, teacher)

	get := func(t *testing.T, path string, v interface{}) {
		tt := httpTest{method: http.MethodGet, path: path, token: token, wantCode: http.StatusOK}
		rec := app.do(tt)
		checkCode(t, tt, rec)
		unmarshal(t, rec, v)
	}

	t.Run("campus activity", func(t *testing.T) {
		var ms []metrics.DashboardMetric
		get(t, "/v1/metrics/campus-activity?campus=Main", &ms)
		require.Len(t, ms, 1)
		assert.Equal(t, "2024-03", ms[0].Month)
		assert.Equal(t, 3, ms[0].TotalEvents)
		assert.Equal(t, 4, ms[0].TotalStudents)
	})

	t.Run("wait time", func(t *testing.T) {
		var ms []metrics.DashboardMetric
		get(t, "/v1/metrics/wait-time?month=2024-03", &ms)
		require.Len(t, ms, 2)
		assert.Equal(t, "Main", ms[0].CampusLocation)
		assert.Equal(t, 80.0, ms[0].AvgWaitSeconds)
		assert.Equal(t, 300.0, ms[1].AvgWaitSeconds)
	})

	t.Run("session duration", func(t *testing.T) {
		var ms []metrics.DashboardMetric
		get(t, "/v1/metrics/session-duration?campus=North", &ms)
		require.Len(t, ms, 1)
		assert.Equal(t, 300.0, ms[0].AvgSessionSeconds)
	})

	t.Run("top arrivals", func(t *testing.T) {
		var boards []metrics.Leaderboard
		get(t, "/v1/metrics/top-arrivals?campus=Main&month=2024-03", &boards)
		require.Len(t, boards, 1)
		arrivals := boards[0].Arrivals
		require.Len(t, arrivals, 2)
		assert.Equal(t, 1, arrivals[0].CarNumber)
		assert.Equal(t, 2, arrivals[0].Appearances)
		assert.Equal(t, 1, arrivals[0].Position)
		assert.Equal(t, []string{"Lovelace"}, arrivals[0].Surnames)
		assert.Equal(t, 2, arrivals[1].CarNumber)
		assert.Equal(t, 2, arrivals[1].Position)
	})

	t.Run("campus ranking", func(t *testing.T) {
		var ranking metrics.CampusActivityRanking
		get(t, "/v1/metrics/campus-activity/ranking?month=2024-03", &ranking)
		assert.Equal(t, "2024-03", ranking.Month)
		require.Len(t, ranking.Podium, 2)
		assert.Equal(t, "Main", ranking.Podium[0].CampusLocation)
		assert.Equal(t, 1, ranking.Podium[0].Rank)
		assert.Equal(t, "North", ranking.Podium[1].CampusLocation)
		assert.Empty(t, ranking.Others)
	})
}

func TestMetricsAPI_clear(t *testing.T) {
	app := setup(t, metricEvents()...)
	aggregate(t, app)

	tt := httpTest{
		method:   http.MethodDelete,
		path:     "/v1/metrics",
		token:    getToken(t, app.conf, admin),
		wantCode: http.StatusOK,
		wantData: marchallObj(t, metrics.ClearResult{Metrics: 6, TopArrivals: 3, ProcessedDates: 3}),
	}
	checkCodeAndData(t, tt, app.do(tt))
	assert.NotEmpty(t, app.logger.Warnings)

	after := httpTest{method: http.MethodGet, path: "/v1/metrics/campus-activity", token: getToken(t, app.conf, teacher), wantCode: http.StatusOK, wantData: []byte("[]")}
	checkCodeAndData(t, after, app.do(after))
}

func TestHome(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Dismissal API!", rec.Body.String())
}
