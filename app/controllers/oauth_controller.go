package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/chainboxhq/chainbox/app/models"
	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

// OAuthController signs users up and in through GitHub. OAuth only
// establishes identity; API access always goes through issued keys.
type OAuthController struct {
	users repository.UserRepository
}

// NewOAuthController wires the controller against the given user store
func NewOAuthController(users repository.UserRepository) *OAuthController {
	return &OAuthController{users: users}
}

// HandleLogin starts the provider flow
func (ctrl *OAuthController) HandleLogin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleCallback completes the provider flow and upserts the local account.
// Matching is by the provider's numeric user id, never by email alone.
func (ctrl *OAuthController) HandleCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "oauth_failed", "message": err.Error()})
	}

	githubID, err := strconv.ParseInt(u.UserID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "oauth_failed", "message": "Provider returned a non-numeric user id"})
	}

	ctx := c.UserContext()
	account, err := ctrl.users.GetByGithubUserID(ctx, githubID)
	switch {
	case err == nil:
		if u.Email != "" && account.Email != u.Email {
			account.Email = u.Email
			if err := ctrl.users.Update(ctx, account); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update account"})
			}
		}
	case errors.Is(err, apperr.ErrNotFound):
		account = &models.User{
			Email:        u.Email,
			GithubUserID: &githubID,
		}
		if err := ctrl.users.Create(ctx, account); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Account already exists"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create account"})
		}
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Account lookup failed"})
	}

	return c.JSON(fiber.Map{
		"id":                  account.ID,
		"email":               account.Email,
		"subscription_status": account.SubscriptionStatus,
		"subscription_tier":   account.SubscriptionTier,
		"created_at":          account.CreatedAt.UTC().Format(time.RFC3339),
	})
}
