package controllers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
	"github.com/chainboxhq/chainbox/internal/pkg/auth"
	"github.com/chainboxhq/chainbox/internal/pkg/metrics"
	"github.com/chainboxhq/chainbox/internal/pkg/usercontext"
)

// APIKeyController serves the key lifecycle endpoints for an authenticated
// user. The raw key appears exactly once, in the create response.
type APIKeyController struct {
	issuer   *auth.Issuer
	creds    repository.CredentialRepository
	validate *validator.Validate
}

// NewAPIKeyController wires the controller against the given credential store
func NewAPIKeyController(creds repository.CredentialRepository) *APIKeyController {
	return &APIKeyController{
		issuer:   auth.NewIssuer(creds),
		creds:    creds,
		validate: validator.New(),
	}
}

type createAPIKeyRequest struct {
	Label            string `json:"label" validate:"max=100"`
	ExpiresInSeconds *int64 `json:"expires_in_seconds" validate:"omitempty,gt=0"`
}

// HandleCreateAPIKey mints a new key for the authenticated user. Omitting
// expires_in_seconds requests a long-lived key; a second long-lived key is
// rejected with 409 and the existing one stays untouched.
func (ctrl *APIKeyController) HandleCreateAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req createAPIKeyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed request body"})
		}
	}
	if err := ctrl.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}
	var expiresAt *time.Time
	if req.ExpiresInSeconds != nil {
		t := time.Now().Add(time.Duration(*req.ExpiresInSeconds) * time.Second)
		expiresAt = &t
	}

	issued, err := ctrl.issuer.Issue(c.UserContext(), userCtx.UserID, req.Label, expiresAt)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "A long-lived API key already exists for this account"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to issue API key"})
	}

	metrics.APIKeysIssuedTotal.Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key":        issued.RawKey,
		"key_id":     issued.Credential.ID,
		"key_prefix": issued.Credential.KeyPrefix,
		"label":      issued.Credential.Label,
		"expires_at": formatTimePtr(issued.Credential.ExpiresAt),
		"created_at": issued.Credential.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// HandleListAPIKeys returns the caller's credentials without any secret
// material.
func (ctrl *APIKeyController) HandleListAPIKeys(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	creds, err := ctrl.creds.ListByUser(c.UserContext(), userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list API keys"})
	}

	keys := make([]fiber.Map, 0, len(creds))
	for _, cred := range creds {
		keys = append(keys, fiber.Map{
			"key_id":       cred.ID,
			"key_prefix":   cred.KeyPrefix,
			"label":        cred.Label,
			"expires_at":   formatTimePtr(cred.ExpiresAt),
			"last_used_at": formatTimePtr(cred.LastUsedAt),
			"created_at":   cred.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{"keys": keys})
}

// HandleRevokeAPIKey deletes a key owned by the caller. Revocation is
// immediate and terminal.
func (ctrl *APIKeyController) HandleRevokeAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	keyID := c.Params("id")
	if err := ctrl.issuer.Revoke(c.UserContext(), keyID, userCtx.UserID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "API key not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to revoke API key"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleGetAccount returns account information for the authenticated user.
func HandleGetAccount(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userCtx := usercontext.GetUserContext(c)
		if !userCtx.IsAuthenticated {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
		}

		account, err := users.GetByID(c.UserContext(), userCtx.UserID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
		}

		return c.JSON(fiber.Map{
			"id":                  account.ID,
			"email":               account.Email,
			"subscription_status": account.SubscriptionStatus,
			"subscription_tier":   account.SubscriptionTier,
			"created_at":          account.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
