package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
	"github.com/chainboxhq/chainbox/internal/pkg/auth"
	"github.com/chainboxhq/chainbox/internal/pkg/metrics"
	"github.com/chainboxhq/chainbox/internal/pkg/usercontext"
)

// APIKeyAuthMiddleware authenticates requests carrying a bearer API key.
// An unknown key and an expired key produce the same rejection.
func APIKeyAuthMiddleware(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			metrics.APIKeyVerifyFailureTotal.Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_or_expired_token", "message": "Missing API key"})
		}

		identity, err := verifier.Verify(c.UserContext(), apiKey)
		if err != nil {
			metrics.APIKeyVerifyFailureTotal.Inc()
			if errors.Is(err, apperr.ErrUnauthenticated) || errors.Is(err, apperr.ErrInvalidInput) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_or_expired_token", "message": "Invalid or expired API key"})
			}
			log.Printf("api key verification failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		metrics.APIKeyVerifySuccessTotal.Inc()
		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:          identity.UserID,
			Email:           identity.Email,
			Tier:            identity.Tier,
			Status:          identity.Status,
			CredentialID:    identity.CredentialID,
			IsAuthenticated: true,
		})

		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	header := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
