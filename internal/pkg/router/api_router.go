package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/chainboxhq/chainbox/app/controllers"
	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/auth"
	"github.com/chainboxhq/chainbox/internal/pkg/cache"
	"github.com/chainboxhq/chainbox/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// InstallRouter registers the bearer-protected surface. Every route behind
// the key middleware sees a populated UserContext.
func (h ApiRouter) InstallRouter(app *fiber.App) {
	factory := repository.GetGlobalFactory()
	verifier := auth.NewVerifier(factory.GetCredentialRepository())

	protected := app.Group("", rateLimiter(), middleware.APIKeyAuthMiddleware(verifier))

	keys := controllers.NewAPIKeyController(factory.GetCredentialRepository())
	protected.Post("/auth/api-keys", keys.HandleCreateAPIKey)
	protected.Get("/auth/api-keys", keys.HandleListAPIKeys)
	protected.Delete("/auth/api-keys/:id", keys.HandleRevokeAPIKey)

	protected.Get("/account", controllers.HandleGetAccount(factory.GetUserRepository()))

	protected.Post("/sessions", controllers.HandleCreateSession)
	protected.Post("/snapshots/:id", controllers.HandleForkSnapshot)
}

// rateLimiter throttles authenticated traffic, sharing counters across
// instances through Redis when the cache is reachable.
func rateLimiter() fiber.Handler {
	cfg := limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}

	client := cache.GetClient()
	if client != nil {
		opts := client.Options()
		host, port := "127.0.0.1", 6379
		if opts != nil && opts.Addr != "" {
			if hostPart, portPart, err := net.SplitHostPort(opts.Addr); err == nil {
				host = hostPart
				if parsed, e := strconv.Atoi(portPart); e == nil {
					port = parsed
				}
			} else {
				host = opts.Addr
			}
		}
		cfg.Storage = redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: opts.Username,
			Password: opts.Password,
			Database: 1,
			Reset:    false,
		})
	}

	return limiter.New(cfg)
}
