package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"tradelink/internal/infrastructure/firebase"
	"tradelink/pkg/errors"
	"tradelink/pkg/response"
)

type AuthMiddleware struct {
	firebaseAuth *firebase.FirebaseAuthClient
}

func NewAuthMiddleware(firebaseAuth *firebase.FirebaseAuthClient) *AuthMiddleware {
	return &AuthMiddleware{
		firebaseAuth: firebaseAuth,
	}
}

// Authenticate requires a valid Firebase ID token and stores the caller's
// uid in the echo context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		uid, err := m.firebaseAuth.VerifyToken(c.Request().Context(), parts[1])
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		c.Set("uid", uid)

		return next(c)
	}
}

// GetUIDFromToken verifies a raw token string. Used by the WebSocket handler,
// which receives the token as a query parameter instead of a header.
func (m *AuthMiddleware) GetUIDFromToken(ctx context.Context, token string) (string, error) {
	return m.firebaseAuth.VerifyToken(ctx, token)
}
