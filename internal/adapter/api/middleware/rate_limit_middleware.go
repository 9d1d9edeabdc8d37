package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"tradelink/internal/infrastructure/ratelimit"
	"tradelink/pkg/errors"
	"tradelink/pkg/logger"
	"tradelink/pkg/response"
)

// RateLimit throttles a mutating route per authenticated user and action.
// Must run after Authenticate so the uid is in the context. System messages
// generated server-side never pass through here and are never throttled.
func RateLimit(limiter *ratelimit.Limiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get("uid").(string)
			if !ok || userID == "" {
				return response.Error(c, errors.Unauthorized("Authentication required", nil))
			}

			if allowed, retryAfter := limiter.Allow(userID, action); !allowed {
				logger.Warn("rate limit exceeded for user %s on %s", userID, action)
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
				return response.Error(c, errors.TooManyRequests(
					fmt.Sprintf("Too many requests, retry in %ds", int(retryAfter.Seconds()))))
			}

			return next(c)
		}
	}
}
