package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo context, binding and JSON responses

	"github.com/iliyamo/tutoring-marketplace/internal/middleware" // caller identity from JWTAuth
	"github.com/iliyamo/tutoring-marketplace/internal/service"    // conversations and read receipts
)

type MessageHandler struct {
	Messages *service.MessageService
}

func NewMessageHandler(m *service.MessageService) *MessageHandler {
	return &MessageHandler{Messages: m}
}

type markReadReq struct {
	SenderID string `json:"senderId"`
}

// Conversation: GET /messages/:userId
func (h *MessageHandler) Conversation(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	msgs, err := h.Messages.Conversation(ctx, middleware.CurrentUserID(c), c.Param("userId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

// Send: POST /messages
func (h *MessageHandler) Send(c echo.Context) error {
	var req service.SendMessageInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Messages.Send(ctx, middleware.CurrentUserID(c), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// MarkRead: PUT /messages/mark-read
func (h *MessageHandler) MarkRead(c echo.Context) error {
	var req markReadReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.Messages.MarkRead(ctx, middleware.CurrentUserID(c), req.SenderID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"msg": "messages marked as read", "updated": n})
}
