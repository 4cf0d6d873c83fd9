package httputil

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/quicktrans/quicktransd/internal/models"
)

// WriteError standardizes JSON error responses.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// StatusForCode maps the service error taxonomy onto HTTP statuses.
func StatusForCode(code models.ErrorCode) int {
	switch code {
	case models.CodeNoAPIConfig, models.CodeNoTTSConfig:
		return fiber.StatusPreconditionFailed
	case models.CodeInvalidAPIKey:
		return fiber.StatusUnauthorized
	case models.CodeRateLimit:
		return fiber.StatusTooManyRequests
	case models.CodeServiceUnavailable:
		return fiber.StatusServiceUnavailable
	case models.CodeTimeout:
		return fiber.StatusGatewayTimeout
	case models.CodeNetworkError, models.CodeStreamError:
		return fiber.StatusBadGateway
	case models.CodeUnsupportedProvider, models.CodeInvalidResponse:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
