package middleware

import (
	"errors"
	"strings"

	"skill-match/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	CtxUserIDKey = "user_id"
	CtxRoleKey   = "role"
)

type AuthMiddleware struct {
	jwt jwt.Service
}

func NewAuthMiddleware(jwtSvc jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwtSvc}
}

func unauthorized(message string, cause error) *AppError {
	return NewAppError(fiber.StatusUnauthorized, "UNAUTHORIZED", message, cause)
}

func (m *AuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerTokenFromHeader(c.Get("Authorization"))
		if !ok {
			return unauthorized("Unauthorized", nil)
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return unauthorized("Token expired", err)
			}
			return unauthorized("Invalid token", err)
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxRoleKey, claims.Role)

		return c.Next()
	}
}

// RequireRole must run after Middleware.
func RequireRole(role string) fiber.Handler {
	return func(c fiber.Ctx) error {
		got, _ := c.Locals(CtxRoleKey).(string)
		if !strings.EqualFold(got, role) {
			return NewAppError(fiber.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		}
		return c.Next()
	}
}

func UserID(c fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(CtxUserIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
