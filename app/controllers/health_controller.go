package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chainboxhq/chainbox/internal/pkg/cache"
	"github.com/chainboxhq/chainbox/internal/pkg/database"
)

// HandleHealth reports liveness of the service and its backing stores.
func HandleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbState := "ok"
	cacheState := "ok"

	db := database.GetDB()
	if db == nil {
		dbState = "unavailable"
		status = fiber.StatusServiceUnavailable
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		dbState = "unreachable"
		status = fiber.StatusServiceUnavailable
	}

	if err := cache.Ping(c.UserContext()); err != nil {
		cacheState = "unreachable"
	}

	body := fiber.Map{"status": "ok", "database": dbState, "cache": cacheState}
	if status != fiber.StatusOK {
		body["status"] = "degraded"
	}
	return c.Status(status).JSON(body)
}
