package handler

import (
	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/decision"
	"dmsapi/internal/http/middleware"
	"dmsapi/internal/service"
)

func ListQuarantine(svc service.QuarantineService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c, 10)
		if err != nil {
			return writeBadRequest(c, err)
		}
		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

func DeleteQuarantined(svc service.QuarantineService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		if err := svc.Delete(c.UserContext(), id, middleware.ActorFrom(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type recoverRequest struct {
	Filename      string `json:"filename"`
	ForceUpload   bool   `json:"forceUpload"`
	CreateVersion bool   `json:"createVersion"`
}

// RecoverQuarantined files a quarantined upload under a corrected name.
// Responses follow the upload endpoint.
func RecoverQuarantined(svc service.QuarantineService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		var req recoverRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		intent := decision.Intent{ForceReplace: req.ForceUpload, CreateVersion: req.CreateVersion}
		res, err := svc.Recover(c.UserContext(), id, req.Filename, intent, middleware.ActorFrom(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(uploadStatus(res.Status)).JSON(res)
	}
}
