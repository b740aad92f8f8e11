package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core/metrics"
	"github.com/trezcool/dismissal/core/user"
)

type metricsAPI struct {
	service  MetricsService
	validate *validator.Validate
}

func registerMetricsAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, svc MetricsService, validate *validator.Validate) {
	api := metricsAPI{service: svc, validate: validate}

	g := v1.Group("/metrics", jwt)
	dashboard := capabilityMiddleware(user.CapViewDashboard)
	g.GET("/campus-activity", api.campusActivity, dashboard)
	g.GET("/campus-activity/ranking", api.campusRanking, dashboard)
	g.GET("/wait-time", api.waitTime, dashboard)
	g.GET("/session-duration", api.sessionDuration, dashboard)
	g.GET("/top-arrivals", api.topArrivals, dashboard)
	g.POST("/aggregate", api.aggregate, capabilityMiddleware(user.CapRunAggregation))
	g.DELETE("", api.clear, capabilityMiddleware(user.CapClearMetrics))
}

type metricQuery func(ctx context.Context, f metrics.Filter) ([]metrics.DashboardMetric, error)

func (api metricsAPI) listMetrics(ctx echo.Context, query metricQuery) error {
	f, err := new(metricFilter).Bind(ctx, api.validate)
	if err != nil {
		return err
	}
	res, err := query(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "querying metrics")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api metricsAPI) campusActivity(ctx echo.Context) error {
	return api.listMetrics(ctx, api.service.GetCampusActivity)
}

func (api metricsAPI) waitTime(ctx echo.Context) error {
	return api.listMetrics(ctx, api.service.GetAverageWaitTime)
}

func (api metricsAPI) sessionDuration(ctx echo.Context) error {
	return api.listMetrics(ctx, api.service.GetSessionDuration)
}

func (api metricsAPI) topArrivals(ctx echo.Context) error {
	f, err := new(metricFilter).Bind(ctx, api.validate)
	if err != nil {
		return err
	}
	boards, err := api.service.GetTopArrivals(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "getting top arrivals")
	}
	return ctx.JSON(http.StatusOK, boards)
}

func (api metricsAPI) campusRanking(ctx echo.Context) error {
	month, err := new(rankingQuery).Bind(ctx, api.validate)
	if err != nil {
		return err
	}
	ranking, err := api.service.GetAllCampusActivity(ctx.Request().Context(), month)
	if err != nil {
		return errors.Wrap(err, "ranking campus activity")
	}
	return ctx.JSON(http.StatusOK, ranking)
}

func (api metricsAPI) aggregate(ctx echo.Context) error {
	res, err := api.service.Aggregate(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "aggregating metrics")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api metricsAPI) clear(ctx echo.Context) error {
	res, err := api.service.ClearDerivedData(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "clearing derived data")
	}
	return ctx.JSON(http.StatusOK, res)
}
