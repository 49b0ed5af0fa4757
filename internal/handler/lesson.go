package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo context, binding and JSON responses

	"github.com/iliyamo/tutoring-marketplace/internal/middleware" // caller identity from JWTAuth
	"github.com/iliyamo/tutoring-marketplace/internal/model"      // quiz result payloads
	"github.com/iliyamo/tutoring-marketplace/internal/service"    // lesson scheduling and access rules
)

// LessonHandler serves /lessons. Ownership checks live in the service.
type LessonHandler struct {
	Lessons *service.LessonService
}

func NewLessonHandler(l *service.LessonService) *LessonHandler {
	return &LessonHandler{Lessons: l}
}

type quizResultsReq struct {
	QuizResults []model.QuizResult `json:"quizResults"`
}

func (h *LessonHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Lessons.List(ctx, middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LessonHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Lessons.Get(ctx, middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LessonHandler) Create(c echo.Context) error {
	var req service.CreateLessonInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Lessons.Create(ctx, middleware.CurrentUserID(c), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LessonHandler) Update(c echo.Context) error {
	var req service.LessonUpdate
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Lessons.Update(ctx, middleware.CurrentUserID(c), c.Param("id"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// GenerateLink replaces the lesson's meeting link and returns the new one.
func (h *LessonHandler) GenerateLink(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	link, err := h.Lessons.GenerateLink(ctx, middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"meetingLink": link})
}

// SubmitQuiz stores the quiz results of a lesson; tutor only.
func (h *LessonHandler) SubmitQuiz(c echo.Context) error {
	var req quizResultsReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Lessons.SubmitQuizResults(ctx, middleware.CurrentUserID(c), c.Param("id"), req.QuizResults)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}
