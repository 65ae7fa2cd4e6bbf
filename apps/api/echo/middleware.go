package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.IsAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// coachMiddleware lets through the provisioned coaches, and the admins.
func coachMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Subject != "" && (claims.IsAdmin || hasRole(claims, user.RoleCoach, user.RoleAdmin)) {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
