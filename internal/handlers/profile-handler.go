package handlers

import (
	"learnhub-server/internal/apperror"
	"learnhub-server/internal/middleware"
	"learnhub-server/internal/models"
	"learnhub-server/internal/service"

	"github.com/gofiber/fiber/v3"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) RegisterRoutes(app *fiber.App) {
	profileGroup := app.Group("/profile")
	profileGroup.Post("/onboarding", h.CompleteOnboarding)
	profileGroup.Post("/onboarding/skip", h.SkipOnboarding)
	profileGroup.Get("/me", h.Me)
}

func (h *ProfileHandler) CompleteOnboarding(c fiber.Ctx) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperror.New(apperror.Unauthenticated, "you are not logged in")
	}

	var fields models.ProfileFields
	if err := c.Bind().Body(&fields); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}

	profile, err := h.profileService.CompleteOnboarding(c.Context(), user, fields)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "onboarding complete",
		"data": fiber.Map{
			"profile":   profile,
			"onboarded": user.Onboarded,
		},
	})
}

func (h *ProfileHandler) SkipOnboarding(c fiber.Ctx) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperror.New(apperror.Unauthenticated, "you are not logged in")
	}

	if err := h.profileService.MarkOnboarded(c.Context(), user); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "onboarding skipped",
		"data": fiber.Map{
			"onboarded": true,
		},
	})
}

func (h *ProfileHandler) Me(c fiber.Ctx) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperror.New(apperror.Unauthenticated, "you are not logged in")
	}

	profile, err := h.profileService.GetProfile(c.Context(), user.ID.Hex())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"user":    user.Public(),
			"profile": profile,
		},
	})
}
