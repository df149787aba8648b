package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/raglegal/api/internal/auth"
	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/pkg/response"
)

// UserFinder resolves the authenticated account behind a token subject.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// AuthMiddleware validates bearer tokens and loads the account.
type AuthMiddleware struct {
	jwtSecret string
	users     UserFinder
}

func NewAuthMiddleware(jwtSecret string, users UserFinder) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		users:     users,
	}
}

// Authenticate validates the JWT from the Authorization header and stores
// the resolved user in request locals.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		claims, err := auth.ValidateToken(parts[1], m.jwtSecret)
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		user, err := m.users.GetByUsername(c.Context(), claims.Subject)
		if err != nil {
			return response.Unauthorized(c, "Invalid credentials")
		}
		if !user.IsActive {
			return response.Forbidden(c, "Account is deactivated")
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// RequireRole restricts a route group to the given roles. Must run after
// Authenticate.
func RequireRole(roles ...model.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "Not authenticated")
		}
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return response.Forbidden(c, "Access forbidden: insufficient role")
	}
}

// GetUser extracts the authenticated user from request locals.
func GetUser(c *fiber.Ctx) *model.User {
	if u, ok := c.Locals("user").(*model.User); ok {
		return u
	}
	return nil
}
