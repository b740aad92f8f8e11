package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core/user"
)

type dismissalAPI struct {
	service DismissalService
}

func registerDismissalAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, svc DismissalService) {
	api := dismissalAPI{service: svc}

	g := v1.Group("/dismissal", jwt, capabilityMiddleware(user.CapViewDataQuality))
	g.GET("/inventory", api.inventory)
	g.GET("/integrity", api.integrity)
	g.GET("/outliers", api.outliers)
	g.GET("/health", api.health)
	g.GET("/analysis", api.analysis)
}

func (api dismissalAPI) inventory(ctx echo.Context) error {
	inv, err := api.service.GetDataInventory(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting data inventory")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api dismissalAPI) integrity(ctx echo.Context) error {
	report, err := api.service.ValidateFieldIntegrity(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "validating field integrity")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api dismissalAPI) outliers(ctx echo.Context) error {
	report, err := api.service.DetectOutliers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "detecting outliers")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api dismissalAPI) health(ctx echo.Context) error {
	report, err := api.service.GetDataHealthReport(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting data health report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api dismissalAPI) analysis(ctx echo.Context) error {
	res, err := api.service.Analyze(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "analyzing dismissal events")
	}
	return ctx.JSON(http.StatusOK, res)
}
