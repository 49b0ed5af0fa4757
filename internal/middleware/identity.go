package middleware

import "github.com/labstack/echo/v4"

// Context keys written by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// CurrentUserID returns the authenticated user id, or "" on public routes.
func CurrentUserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

// CurrentRole returns the authenticated user's role, or "".
func CurrentRole(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}

// userKey is the identity part of rate limit keys; "anon" before
// authentication.
func userKey(c echo.Context) string {
	if id := CurrentUserID(c); id != "" {
		return id
	}
	return "anon"
}
