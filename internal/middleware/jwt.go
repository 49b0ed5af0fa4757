package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // header trimming and prefix checks

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers
)

// TokenVerifier checks a raw session token and returns the identity inside
// it. utils.JWTSigner satisfies it.
type TokenVerifier interface {
	Verify(raw string) (userID, role string, err error)
}

// JWTAuth returns an Echo middleware that reads the session token from the
// given request header, verifies it and stores the user id and role in the
// request context for CurrentUserID and CurrentRole. An optional "Bearer "
// prefix is stripped so the header may also be Authorization.
//
// Every failure (no header, garbage, bad signature, wrong algorithm, expired)
// produces the same 401 body; clients are not told which check failed.
func JWTAuth(v TokenVerifier, header string) echo.MiddlewareFunc {
	if header == "" {
		header = "x-auth-token"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerless(c.Request().Header.Get(header))
			if raw == "" {
				return unauthorized(c)
			}
			userID, role, err := v.Verify(raw)
			if err != nil {
				return unauthorized(c)
			}
			c.Set(ctxUserID, userID)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

func bearerless(h string) string {
	h = strings.TrimSpace(h)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		h = strings.TrimSpace(h[7:])
	}
	return h
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "unauthorized"})
}
