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

type UsersHandler struct {
	service   *service.UserService
	validator *validator.Validate
}

func NewUsersHandler(svc *service.UserService, v *validator.Validate) *UsersHandler {
	return &UsersHandler{
		service:   svc,
		validator: v,
	}
}

// Me handles GET /api/users/me
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	return response.OK(c, middleware.GetUser(c))
}

// List handles GET /api/users (admin only)
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.service.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, users)
}

// Update handles PATCH /api/users/:id (admin only)
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.ValidationError(c, "Invalid user id", nil)
	}

	var req model.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	user, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, service.ErrAdminImmutable):
			return response.Forbidden(c, "Cannot modify admin account")
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.OK(c, user)
}

// Delete handles DELETE /api/users/:id (admin only)
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.ValidationError(c, "Invalid user id", nil)
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, service.ErrAdminImmutable):
			return response.Forbidden(c, "Cannot delete admin account")
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.NoContent(c)
}
