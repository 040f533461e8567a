package handler

import (
	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/model"
	"dmsapi/internal/service"
)

// ListAuditLogs filters by action, resource_type, resource_id and user_id.
func ListAuditLogs(svc service.AuditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c, 100)
		if err != nil {
			return writeBadRequest(c, err)
		}
		res, err := svc.List(c.UserContext(), model.AuditFilter{
			Action:       c.Query("action"),
			ResourceType: c.Query("resource_type"),
			ResourceID:   c.Query("resource_id"),
			UserID:       c.Query("user_id"),
			Limit:        limit,
			Offset:       offset,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}
