package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/offerpoint/offerpoint-core/internal/app/middlewares"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/app/services"
)

type BalanceHandler struct {
	ledgerService       *services.LedgerService
	authMiddleware      *middlewares.AuthMiddleware
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

func NewBalanceHandler(ledgerService *services.LedgerService, authMiddleware *middlewares.AuthMiddleware, rateLimitMiddleware *middlewares.RateLimitMiddleware) *BalanceHandler {
	return &BalanceHandler{
		ledgerService:       ledgerService,
		authMiddleware:      authMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *BalanceHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/balance/me",
		h.rateLimitMiddleware.LimitByUser(middlewares.AuthenticatedAPILimit),
		h.authMiddleware.AuthUser, h.GetMyBalance)
	router.Get("/ledger/me",
		h.rateLimitMiddleware.LimitByUser(middlewares.AuthenticatedAPILimit),
		h.authMiddleware.AuthUser, h.GetMyLedger)

	adminGroup := router.Group("/admin/ledger",
		h.rateLimitMiddleware.LimitByUser(middlewares.AdminAPILimit),
		h.authMiddleware.AuthUser, h.authMiddleware.RequireAdmin)
	adminGroup.Post("/adjustments", h.CreateAdjustment)
}

func (h *BalanceHandler) GetMyBalance(c *fiber.Ctx) error {
	identityUser := c.Locals("identity_user").(*models.IdentityUser)

	balance, err := h.ledgerService.GetBalance(identityUser.ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, models.BalanceResponse{
		UserID:  identityUser.ID,
		Balance: balance,
	})
}

func (h *BalanceHandler) GetMyLedger(c *fiber.Ctx) error {
	identityUser := c.Locals("identity_user").(*models.IdentityUser)

	var pagination models.PaginationRequest
	if err := c.QueryParser(&pagination); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	entries, err := h.ledgerService.GetEntriesByUser(identityUser.ID, &pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, entries)
}

func (h *BalanceHandler) CreateAdjustment(c *fiber.Ctx) error {
	var req models.LedgerAdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	entry, err := h.ledgerService.ManualAdjust(&req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, entry)
}
