package handlers

import (
	"learnhub-server/internal/apperror"
	"learnhub-server/internal/middleware"
	"learnhub-server/internal/models"
	"learnhub-server/internal/service"

	"github.com/gofiber/fiber/v3"
)

type ResultHandler struct {
	resultService *service.ResultService
}

func NewResultHandler(resultService *service.ResultService) *ResultHandler {
	return &ResultHandler{resultService: resultService}
}

func (h *ResultHandler) RegisterRoutes(app *fiber.App, auth *middleware.AuthMiddleware) {
	resultGroup := app.Group("/results")
	resultGroup.Post("/", h.SaveResult)
	resultGroup.Get("/me", h.MyResults)

	adminGroup := app.Group("/admin", auth.RestrictTo(models.RoleAdmin))
	adminGroup.Get("/results/:userId", h.ResultsByUser)
}

func (h *ResultHandler) SaveResult(c fiber.Ctx) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperror.New(apperror.Unauthenticated, "you are not logged in")
	}

	var result models.QuizResult
	if err := c.Bind().Body(&result); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}

	if err := h.resultService.Save(c.Context(), user.ID.Hex(), &result); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "result saved",
		"data": fiber.Map{
			"result": result,
		},
	})
}

func (h *ResultHandler) MyResults(c fiber.Ctx) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperror.New(apperror.Unauthenticated, "you are not logged in")
	}

	results, err := h.resultService.ListByUser(c.Context(), user.ID.Hex())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"results": results,
		},
	})
}

func (h *ResultHandler) ResultsByUser(c fiber.Ctx) error {
	results, err := h.resultService.ListByUser(c.Context(), c.Params("userId"))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"results": results,
		},
	})
}
