package handler

import (
	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/http/middleware"
	"dmsapi/internal/service"
)

func CreateShare(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ShareInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		link, err := svc.Create(c.UserContext(), in, middleware.ActorFrom(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(link)
	}
}

// AccessShare is public: the token is the credential. The PIN, when the
// link has one, comes from the X-Share-PIN header or the pin query value.
func AccessShare(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pin := c.Get("X-Share-PIN")
		if pin == "" {
			pin = c.Query("pin")
		}
		doc, err := svc.Access(c.UserContext(), c.Params("token"), pin, middleware.ActorFrom(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

func ListShares(svc service.ShareService) fiber.Handler {
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

func RevokeShare(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		if err := svc.Revoke(c.UserContext(), id, middleware.ActorFrom(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
