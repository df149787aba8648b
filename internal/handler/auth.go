package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/service"
	"github.com/raglegal/api/pkg/response"
)

type AuthHandler struct {
	service   *service.UserService
	validator *validator.Validate
}

func NewAuthHandler(svc *service.UserService, v *validator.Validate) *AuthHandler {
	return &AuthHandler{
		service:   svc,
		validator: v,
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	token, err := h.service.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return response.Unauthorized(c, "Invalid credentials")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, token)
}

// Register handles POST /auth/register (admin only)
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req model.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	user, err := h.service.Register(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			return response.Conflict(c, "Username or email already registered")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, user)
}
