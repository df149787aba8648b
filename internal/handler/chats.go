package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/raglegal/api/internal/middleware"
	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/service"
	"github.com/raglegal/api/pkg/response"
)

type ChatsHandler struct {
	service   *service.ChatService
	validator *validator.Validate
}

func NewChatsHandler(svc *service.ChatService, v *validator.Validate) *ChatsHandler {
	return &ChatsHandler{
		service:   svc,
		validator: v,
	}
}

// CreateSession handles POST /api/chats/sessions
func (h *ChatsHandler) CreateSession(c *fiber.Ctx) error {
	var req model.SessionCreateRequest
	if err := c.BodyParser(&req); err != nil && err != fiber.ErrUnprocessableEntity {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	user := middleware.GetUser(c)
	sess, err := h.service.CreateSession(c.Context(), user.ID, req.Title)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, sess)
}

// ListSessions handles GET /api/chats/sessions
func (h *ChatsHandler) ListSessions(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	sessions, err := h.service.ListSessions(c.Context(), user.ID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, sessions)
}

// Messages handles GET /api/chats/sessions/:id/messages
func (h *ChatsHandler) Messages(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.ValidationError(c, "Invalid session id", nil)
	}

	user := middleware.GetUser(c)
	msgs, err := h.service.GetMessages(c.Context(), user.ID, id)
	if err != nil {
		return chatError(c, err)
	}
	return response.OK(c, msgs)
}

// DeleteSession handles DELETE /api/chats/sessions/:id
func (h *ChatsHandler) DeleteSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.ValidationError(c, "Invalid session id", nil)
	}

	user := middleware.GetUser(c)
	if err := h.service.DeleteSession(c.Context(), user.ID, id); err != nil {
		return chatError(c, err)
	}
	return response.NoContent(c)
}

// PostMessage handles POST /api/chats/sessions/:id/messages. The
// question is queued for the AI worker; the reply arrives via polling
// GET /api/tasks/:taskId.
func (h *ChatsHandler) PostMessage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.ValidationError(c, "Invalid session id", nil)
	}

	var req model.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	user := middleware.GetUser(c)
	result, err := h.service.PostMessage(c.Context(), user.ID, id, req.Content)
	if err != nil {
		return chatError(c, err)
	}

	return response.Accepted(c, result)
}

func chatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return response.NotFound(c, "Session not found")
	case errors.Is(err, service.ErrNotSessionOwner):
		return response.Forbidden(c, "Session belongs to another user")
	default:
		return response.ServiceError(c, err.Error())
	}
}
