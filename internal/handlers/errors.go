package handlers

import (
	"errors"
	"log"

	"learnhub-server/internal/apperror"

	"github.com/gofiber/fiber/v3"
)

// ErrorHandler is the outermost request boundary: every domain error is
// translated here into the JSON envelope, so handlers just return errors.
func ErrorHandler(c fiber.Ctx, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		payload := fiber.Map{
			"status":  "error",
			"message": appErr.Message,
			"error":   string(appErr.Kind),
		}
		// The client branches on this one to redirect into the OTP flow.
		if appErr.Kind == apperror.EmailNotVerified {
			payload["code"] = string(apperror.EmailNotVerified)
		}
		return c.Status(apperror.HTTPStatus(appErr.Kind)).JSON(payload)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"status":  "error",
			"message": fiberErr.Message,
			"error":   fiberErr.Message,
		})
	}

	log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": "something went wrong",
		"error":   "INTERNAL",
	})
}
