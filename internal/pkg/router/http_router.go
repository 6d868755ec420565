package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chainboxhq/chainbox/app/controllers"
	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/billing"
	"github.com/chainboxhq/chainbox/internal/pkg/metrics"
	"github.com/chainboxhq/chainbox/internal/pkg/oauth"
)

type HttpRouter struct {
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// InstallRouter registers the unauthenticated surface: health, metrics, the
// OAuth login flow, and the billing webhook. The webhook authenticates itself
// through its signature, never through a bearer key.
func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init oauth providers and their session storage
	oauth.Setup()

	factory := repository.GetGlobalFactory()

	app.Get("/health", controllers.HandleHealth)
	app.Get("/metrics", metrics.Handler())

	oauthController := controllers.NewOAuthController(factory.GetUserRepository())
	app.Get("/auth/github", oauthController.HandleLogin)
	app.Get("/auth/github/callback", oauthController.HandleCallback)

	ingestor := billing.NewIngestor(factory.GetTransactor(), billing.LogNotifier{})
	billingController := controllers.NewBillingController(ingestor)
	app.Post("/billing/webhook", billingController.HandleStripeWebhook)
}
