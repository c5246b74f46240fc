package handlers

import (
	"strconv"

	"learnhub-server/internal/middleware"
	"learnhub-server/internal/models"
	"learnhub-server/internal/service"

	"github.com/gofiber/fiber/v3"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterRoutes(app *fiber.App, auth *middleware.AuthMiddleware) {
	adminGroup := app.Group("/admin", auth.RestrictTo(models.RoleAdmin))
	adminGroup.Get("/users", h.ListUsers)
}

// ListUsers is the privileged listing: it includes soft-deleted accounts,
// which normal reads never surface.
func (h *UserHandler) ListUsers(c fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	users, err := h.userService.ListUsers(c.Context(), page, limit)
	if err != nil {
		return err
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"users": public,
		},
	})
}
