package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-marketplace/internal/utils"
)

func whoAmI(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"id": CurrentUserID(c), "role": CurrentRole(c)})
}

func TestJWTAuth(t *testing.T) {
	signer := utils.NewJWTSigner("secret", time.Hour)
	tok, err := signer.Sign("user-1", "student")
	require.NoError(t, err)
	expired, err := utils.NewJWTSigner("secret", time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		Sign("user-1", "student")
	require.NoError(t, err)
	foreign, err := utils.NewJWTSigner("other", time.Hour).Sign("user-1", "student")
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", whoAmI, JWTAuth(signer, "x-auth-token"))

	cases := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"valid", "x-auth-token", tok.Token, http.StatusOK},
		{"bearer prefix", "x-auth-token", "Bearer " + tok.Token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong header", "Authorization", "Bearer " + tok.Token, http.StatusUnauthorized},
		{"garbage", "x-auth-token", "abc.def.ghi", http.StatusUnauthorized},
		{"expired", "x-auth-token", expired.Token, http.StatusUnauthorized},
		{"foreign secret", "x-auth-token", foreign.Token, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"id":"user-1","role":"student"}`, rec.Body.String())
			} else {
				assert.JSONEq(t, `{"msg":"unauthorized"}`, rec.Body.String())
			}
		})
	}
}

func TestJWTAuthAuthorizationHeader(t *testing.T) {
	signer := utils.NewJWTSigner("secret", time.Hour)
	tok, err := signer.Sign("user-2", "tutor")
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", whoAmI, JWTAuth(signer, echo.HeaderAuthorization))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	signer := utils.NewJWTSigner("secret", time.Hour)
	e := echo.New()
	e.POST("/quizzes", whoAmI, JWTAuth(signer, "x-auth-token"), RequireRole("tutor"))

	for role, want := range map[string]int{"tutor": http.StatusOK, "student": http.StatusUnauthorized} {
		tok, err := signer.Sign("u", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/quizzes", nil)
		req.Header.Set("x-auth-token", tok.Token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}
