package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/candidature/core"
)

func roleMiddleware(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role == role {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(core.RoleAdmin)
}

func candidateMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(core.RoleCandidate)
}
