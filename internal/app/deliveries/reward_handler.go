package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/offerpoint/offerpoint-core/internal/app/middlewares"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/app/services"
)

type RewardHandler struct {
	rewardService       *services.RewardService
	variantService      *services.VariantService
	authMiddleware      *middlewares.AuthMiddleware
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

func NewRewardHandler(rewardService *services.RewardService, variantService *services.VariantService, authMiddleware *middlewares.AuthMiddleware, rateLimitMiddleware *middlewares.RateLimitMiddleware) *RewardHandler {
	return &RewardHandler{
		rewardService:       rewardService,
		variantService:      variantService,
		authMiddleware:      authMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *RewardHandler) RegisterRoutes(router fiber.Router) {
	rewardGroup := router.Group("/rewards",
		h.rateLimitMiddleware.LimitByIP(middlewares.PublicAPILimit))

	// Public catalog
	rewardGroup.Get("/", h.GetRewards)
	rewardGroup.Get("/:id", h.GetReward)
	rewardGroup.Get("/:id/variants", h.GetVariants)

	adminGroup := router.Group("/admin",
		h.rateLimitMiddleware.LimitByUser(middlewares.AdminAPILimit),
		h.authMiddleware.AuthUser, h.authMiddleware.RequireAdmin)
	adminGroup.Post("/rewards", h.CreateReward)
	adminGroup.Post("/variants", h.CreateVariant)
	adminGroup.Patch("/variants/:id", h.UpdateVariant)
}

func (h *RewardHandler) GetRewards(c *fiber.Ctx) error {
	rewards, err := h.rewardService.ListActiveRewards()
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, rewards)
}

func (h *RewardHandler) GetReward(c *fiber.Ctx) error {
	id := c.Params("id")

	reward, err := h.rewardService.GetReward(id)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, reward)
}

func (h *RewardHandler) GetVariants(c *fiber.Ctx) error {
	id := c.Params("id")

	variants, err := h.variantService.GetVariantsByReward(id)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, variants)
}

func (h *RewardHandler) CreateReward(c *fiber.Ctx) error {
	var req models.RewardCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	reward, err := h.rewardService.CreateReward(&req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, reward)
}

func (h *RewardHandler) CreateVariant(c *fiber.Ctx) error {
	var req models.VariantCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	variant, err := h.variantService.CreateVariant(&req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, variant)
}

func (h *RewardHandler) UpdateVariant(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.VariantUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	variant, err := h.variantService.UpdateVariant(id, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, variant)
}
