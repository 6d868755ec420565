package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chainboxhq/chainbox/internal/pkg/usercontext"
)

// Sandbox orchestration endpoints. The control plane owns accounts, keys, and
// billing; runtime placement lives in the runner fleet and is not served from
// here yet.

// HandleCreateSession reserves the sandbox session endpoint.
func HandleCreateSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}
	return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "not_implemented", "message": "Sandbox sessions are not served by this deployment"})
}

// HandleForkSnapshot reserves the snapshot fork endpoint.
func HandleForkSnapshot(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}
	return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "not_implemented", "message": "Snapshot forking is not served by this deployment"})
}
