package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo context, binding and JSON responses

	"github.com/iliyamo/tutoring-marketplace/internal/middleware" // caller identity and role from JWTAuth
	"github.com/iliyamo/tutoring-marketplace/internal/service"    // quiz bank
)

type QuizHandler struct {
	Quizzes *service.QuizService
}

func NewQuizHandler(q *service.QuizService) *QuizHandler {
	return &QuizHandler{Quizzes: q}
}

func (h *QuizHandler) Create(c echo.Context) error {
	var req service.CreateQuizInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	q, err := h.Quizzes.Create(ctx, middleware.CurrentUserID(c), middleware.CurrentRole(c), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *QuizHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	qs, err := h.Quizzes.ListMine(ctx, middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, qs)
}

func (h *QuizHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	q, err := h.Quizzes.Get(ctx, middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}
