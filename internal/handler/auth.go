package handler

import (
	"net/http" // HTTP status codes and primitives

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/tutoring-marketplace/internal/middleware" // identity placed in context by JWTAuth
	"github.com/iliyamo/tutoring-marketplace/internal/service"    // registration, login and profile logic
)

// AuthHandler exposes registration, login and the caller's own profile.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// Register: create user and return a session token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Auth.Register(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Login: verify credentials and return a fresh session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Profile returns the authenticated user's record. The password hash is
// never serialized.
func (h *AuthHandler) Profile(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.Profile(ctx, middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateProfile applies a partial profile update to the caller. The target
// is always the token's subject, never a value from the request.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req service.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.UpdateProfile(ctx, middleware.CurrentUserID(c), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
