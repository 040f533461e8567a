package handler

import (
	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/http/middleware"
	"dmsapi/internal/service"
)

func ListTags(svc service.TagService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tags, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": tags})
	}
}

func CreateTag(svc service.TagService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.TagInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		tag, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tag)
	}
}

func UpdateTag(svc service.TagService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		var in service.TagInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		tag, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(tag)
	}
}

func DeleteTag(svc service.TagService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func DocumentTags(svc service.TagService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		tags, err := svc.ForDocument(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": tags})
	}
}

type attachTagRequest struct {
	TagID string `json:"tag_id"`
}

func AttachTag(svc service.TagService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		var req attachTagRequest
		if err := c.BodyParser(&req); err != nil || req.TagID == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "tag_id is required")
		}
		if err := svc.Attach(c.UserContext(), id, req.TagID, middleware.ActorFrom(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func DetachTag(svc service.TagService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		tagID, err := uuidParam(c, "tagId")
		if err != nil {
			return writeBadRequest(c, err)
		}
		if err := svc.Detach(c.UserContext(), id, tagID, middleware.ActorFrom(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
