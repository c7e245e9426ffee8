package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/middlewares"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/app/services"
)

type RedemptionHandler struct {
	redemptionService   *services.RedemptionService
	authMiddleware      *middlewares.AuthMiddleware
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

func NewRedemptionHandler(redemptionService *services.RedemptionService, authMiddleware *middlewares.AuthMiddleware, rateLimitMiddleware *middlewares.RateLimitMiddleware) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionService:   redemptionService,
		authMiddleware:      authMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *RedemptionHandler) RegisterRoutes(router fiber.Router) {
	redemptionGroup := router.Group("/redemptions",
		h.rateLimitMiddleware.LimitByUser(middlewares.AuthenticatedAPILimit),
		h.authMiddleware.AuthUser)
	redemptionGroup.Post("/", h.CreateRedemption)
	redemptionGroup.Get("/me", h.GetMyRedemptions)
	redemptionGroup.Get("/:id", h.GetRedemption)

	adminGroup := router.Group("/admin/redemptions",
		h.rateLimitMiddleware.LimitByUser(middlewares.AdminAPILimit),
		h.authMiddleware.AuthUser, h.authMiddleware.RequireAdmin)
	adminGroup.Get("/", h.ListByStatus)
	adminGroup.Post("/bulk-transition", h.BulkTransition)
	adminGroup.Post("/:id/transition", h.Transition)
}

func (h *RedemptionHandler) CreateRedemption(c *fiber.Ctx) error {
	var req models.RedemptionCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.Get("Idempotency-Key")
	}

	identityUser := c.Locals("identity_user").(*models.IdentityUser)

	result, err := h.redemptionService.CreateRedemption(identityUser.ID, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	if result.Replayed {
		return pkg.SuccessResponse(c, result)
	}
	return c.Status(fiber.StatusCreated).JSON(models.WebResponse[*models.RedemptionCreateResponse]{
		Success: true,
		Data:    result,
	})
}

func (h *RedemptionHandler) GetRedemption(c *fiber.Ctx) error {
	id := c.Params("id")

	redemption, err := h.redemptionService.GetRedemption(id)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	// Owners and admins only
	identityUser := c.Locals("identity_user").(*models.IdentityUser)
	if redemption.UserID != identityUser.ID && !identityUser.IsAdmin {
		return pkg.ErrorResponse(c, errors.NewNotFoundError("Redemption not found"))
	}

	return pkg.SuccessResponse(c, redemption)
}

func (h *RedemptionHandler) GetMyRedemptions(c *fiber.Ctx) error {
	identityUser := c.Locals("identity_user").(*models.IdentityUser)

	var pagination models.PaginationRequest
	if err := c.QueryParser(&pagination); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	redemptions, err := h.redemptionService.GetRedemptionsByUser(identityUser.ID, &pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, redemptions)
}

func (h *RedemptionHandler) ListByStatus(c *fiber.Ctx) error {
	status := models.RedemptionStatus(c.Query("status", string(models.RedemptionStatusPending)))

	var pagination models.PaginationRequest
	if err := c.QueryParser(&pagination); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	redemptions, err := h.redemptionService.ListByStatus(status, &pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, redemptions)
}

func (h *RedemptionHandler) Transition(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.RedemptionTransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	identityUser := c.Locals("identity_user").(*models.IdentityUser)
	actorID := identityUser.ID

	result, err := h.redemptionService.Transition(id, &req, &actorID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, result)
}

func (h *RedemptionHandler) BulkTransition(c *fiber.Ctx) error {
	var req models.BulkTransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	identityUser := c.Locals("identity_user").(*models.IdentityUser)
	actorID := identityUser.ID

	results, err := h.redemptionService.BulkTransition(&req, &actorID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, results)
}
