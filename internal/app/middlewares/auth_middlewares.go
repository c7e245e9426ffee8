package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/app/services"
)

type AuthMiddleware struct {
	identityService *services.IdentityService
}

func NewAuthMiddleware(identityService *services.IdentityService) *AuthMiddleware {
	return &AuthMiddleware{identityService: identityService}
}

func (m *AuthMiddleware) AuthUser(c *fiber.Ctx) error {
	token := c.Get("Authorization")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.WebResponse[any]{
			Success: false,
			Message: "Unauthorized",
		})
	}

	token = strings.Replace(token, "Bearer ", "", 1)

	identityUser, err := m.identityService.GetCurrentUser(token)
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError(err.Error()))
	}

	c.Locals("identity_user", identityUser)
	c.Locals("user_id", identityUser.ID.String())

	return c.Next()
}

func (m *AuthMiddleware) RequireAdmin(c *fiber.Ctx) error {
	identityUser := c.Locals("identity_user").(*models.IdentityUser)

	if identityUser == nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("User is not authenticated"))
	}

	if !identityUser.IsAdmin {
		return pkg.ErrorResponse(c, errors.NewForbiddenError("Admin privileges are required"))
	}

	return c.Next()
}
