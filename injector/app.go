package injector

import (
	"github.com/gofiber/fiber/v2"
	"github.com/offerpoint/offerpoint-core/internal/app/deliveries"
	"github.com/offerpoint/offerpoint-core/internal/app/middlewares"
	"github.com/offerpoint/offerpoint-core/internal/app/workers"
)

// Application represents the main application container for offerpoint-core
type Application struct {
	HealthHandler       *deliveries.HealthHandler
	MetricsHandler      *deliveries.MetricsHandler
	BalanceHandler      *deliveries.BalanceHandler
	RedemptionHandler   *deliveries.RedemptionHandler
	RewardHandler       *deliveries.RewardHandler
	PostbackHandler     *deliveries.PostbackHandler
	FulfillmentHandler  *deliveries.FulfillmentHandler
	FulfillmentWorker   *workers.FulfillmentWorker
	RateLimitMiddleware *middlewares.RateLimitMiddleware
}

// RegisterRoutes registers all application routes using a Fiber router
func (app *Application) RegisterRoutes(router fiber.Router) {
	app.HealthHandler.RegisterRoutes(router)
	app.MetricsHandler.RegisterRoutes(router)
	app.BalanceHandler.RegisterRoutes(router)
	app.RedemptionHandler.RegisterRoutes(router)
	app.RewardHandler.RegisterRoutes(router)
	app.PostbackHandler.RegisterRoutes(router)
	app.FulfillmentHandler.RegisterRoutes(router)
}
