//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/offerpoint/offerpoint-core/internal/app/deliveries"
	"github.com/offerpoint/offerpoint-core/internal/app/middlewares"
	"github.com/offerpoint/offerpoint-core/internal/app/services"
	"github.com/offerpoint/offerpoint-core/internal/app/workers"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
)

// Infrastructure providers
var infrastructureSet = wire.NewSet(
	infrastructures.NewDatabase,
	infrastructures.NewRedisClient,
	infrastructures.NewValidator,
	infrastructures.NewPayoutClient,
	wire.Value("offerpoint"),
	wire.Bind(new(middlewares.RateLimiter), new(*middlewares.RedisRateLimiter)),
	middlewares.NewRedisRateLimiter,
)

// Service providers
var serviceSet = wire.NewSet(
	services.NewIdentityService,
	wire.Bind(new(services.IdentityProvider), new(*services.IdentityService)),
	services.NewLedgerService,
	services.NewRiskService,
	services.NewRewardService,
	services.NewVariantService,
	services.NewRedemptionService,
	services.NewPayoutService,
	wire.Bind(new(services.PayoutProvider), new(*services.PayoutService)),
	services.NewFulfillmentService,
	services.NewConversionService,
)

// Middleware providers
var middlewareSet = wire.NewSet(
	middlewares.NewAuthMiddleware,
	middlewares.NewRateLimitMiddleware,
)

// Handler and worker providers
var handlerSet = wire.NewSet(
	deliveries.NewHealthHandler,
	deliveries.NewMetricsHandler,
	deliveries.NewBalanceHandler,
	deliveries.NewRedemptionHandler,
	deliveries.NewRewardHandler,
	deliveries.NewPostbackHandler,
	deliveries.NewFulfillmentHandler,
	workers.NewFulfillmentWorker,
	wire.Struct(new(Application), "*"),
)

// InitializeApplication initializes the application with all its dependencies
func InitializeApplication() (*Application, error) {
	wire.Build(
		infrastructureSet,
		serviceSet,
		middlewareSet,
		handlerSet,
	)
	return &Application{}, nil
}
