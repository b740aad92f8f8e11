package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/metrics"
)

// metricFilter is bound from the `campus` and `month` query params of the dashboard endpoints.
type metricFilter struct {
	Campus string `query:"campus" validate:"omitempty,notblank"`
	Month  string `query:"month" validate:"omitempty,month"`
}

func (f *metricFilter) Bind(ctx echo.Context, validate *validator.Validate) (metrics.Filter, error) {
	if err := ctx.Bind(f); err != nil {
		return metrics.Filter{}, core.NewValidationError(err)
	}
	if err := validate.Struct(f); err != nil {
		return metrics.Filter{}, errors.Wrap(err, "validating filter")
	}
	return metrics.Filter{Campus: f.Campus, Month: f.Month}, nil
}

type rankingQuery struct {
	Month string `query:"month" validate:"required,month"`
}

func (q *rankingQuery) Bind(ctx echo.Context, validate *validator.Validate) (string, error) {
	if err := ctx.Bind(q); err != nil {
		return "", core.NewValidationError(err)
	}
	if err := validate.Struct(q); err != nil {
		return "", errors.Wrap(err, "validating ranking query")
	}
	return q.Month, nil
}
