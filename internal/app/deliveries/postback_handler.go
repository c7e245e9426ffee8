package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/offerpoint/offerpoint-core/internal/app/middlewares"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/app/services"
)

// PostbackHandler receives server-to-server conversion callbacks from offerwall
// providers. Providers expect a 200 on duplicates, otherwise they keep retrying.
type PostbackHandler struct {
	conversionService   *services.ConversionService
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

func NewPostbackHandler(conversionService *services.ConversionService, rateLimitMiddleware *middlewares.RateLimitMiddleware) *PostbackHandler {
	return &PostbackHandler{
		conversionService:   conversionService,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *PostbackHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/postbacks/:provider",
		h.rateLimitMiddleware.LimitByIP(middlewares.PostbackLimit),
		h.HandlePostback)
}

func (h *PostbackHandler) HandlePostback(c *fiber.Ctx) error {
	provider := c.Params("provider")

	result, err := h.conversionService.Ingest(provider, c.Queries())
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, result)
}
