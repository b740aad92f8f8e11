package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core/user"
)

// capabilityMiddleware only lets through principals whose roles grant the capability.
func capabilityMiddleware(c user.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if p.Can(c) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
