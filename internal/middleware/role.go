package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole lets the request through only when the role placed in the
// context by JWTAuth is one of roles. Other callers get the same 401
// "not authorized" body the services use for ownership failures.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[CurrentRole(c)] {
				return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "not authorized"})
			}
			return next(c)
		}
	}
}
