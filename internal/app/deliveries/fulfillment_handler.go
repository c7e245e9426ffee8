package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/offerpoint/offerpoint-core/internal/app/middlewares"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/app/services"
)

type FulfillmentHandler struct {
	fulfillmentService  *services.FulfillmentService
	authMiddleware      *middlewares.AuthMiddleware
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

func NewFulfillmentHandler(fulfillmentService *services.FulfillmentService, authMiddleware *middlewares.AuthMiddleware, rateLimitMiddleware *middlewares.RateLimitMiddleware) *FulfillmentHandler {
	return &FulfillmentHandler{
		fulfillmentService:  fulfillmentService,
		authMiddleware:      authMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *FulfillmentHandler) RegisterRoutes(router fiber.Router) {
	adminGroup := router.Group("/admin/fulfillment-jobs",
		h.rateLimitMiddleware.LimitByUser(middlewares.AdminAPILimit),
		h.authMiddleware.AuthUser, h.authMiddleware.RequireAdmin)
	adminGroup.Get("/", h.ListJobs)
	adminGroup.Get("/:id", h.GetJob)
}

func (h *FulfillmentHandler) ListJobs(c *fiber.Ctx) error {
	var status *models.FulfillmentJobStatus
	if statusStr := c.Query("status"); statusStr != "" {
		jobStatus := models.FulfillmentJobStatus(statusStr)
		status = &jobStatus
	}

	var pagination models.PaginationRequest
	if err := c.QueryParser(&pagination); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	jobs, err := h.fulfillmentService.ListJobs(status, &pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, jobs)
}

func (h *FulfillmentHandler) GetJob(c *fiber.Ctx) error {
	id := c.Params("id")

	job, err := h.fulfillmentService.GetJob(id)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, job)
}
