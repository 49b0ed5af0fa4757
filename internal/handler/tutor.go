package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo context and JSON responses

	"github.com/iliyamo/tutoring-marketplace/internal/service" // tutor directory
)

// TutorHandler serves the tutor directory. Responses are cacheable: they do
// not depend on who is asking.
type TutorHandler struct {
	Tutors *service.TutorService
}

func NewTutorHandler(t *service.TutorService) *TutorHandler {
	return &TutorHandler{Tutors: t}
}

func (h *TutorHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tutors, err := h.Tutors.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tutors)
}

func (h *TutorHandler) BySubject(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tutors, err := h.Tutors.BySubject(ctx, c.Param("subject"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tutors)
}

func (h *TutorHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tutors.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
