package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/http/middleware"
	"dmsapi/internal/model"
	"dmsapi/internal/service"
)

// Services are the collaborators behind the HTTP API.
type Services struct {
	Documents  service.DocumentService
	Uploads    service.UploadService
	Quarantine service.QuarantineService
	Tags       service.TagService
	Shares     service.ShareService
	Audit      service.AuditService
	Rename     service.RenameService

	// UploadLimiter, when set, guards the upload endpoint.
	UploadLimiter fiber.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Role gates
// rely on middleware.Identity having run earlier in the chain.
func RegisterRoutes(app *fiber.App, db *sql.DB, s Services) {
	viewer := middleware.RequireRole(model.RoleViewer)
	editor := middleware.RequireRole(model.RoleEditor)
	admin := middleware.RequireRole(model.RoleAdmin)

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	upload := []fiber.Handler{editor}
	if s.UploadLimiter != nil {
		upload = append(upload, s.UploadLimiter)
	}
	app.Post("/documents", append(upload, UploadDocument(s.Uploads))...)
	app.Get("/documents", viewer, ListDocuments(s.Documents))
	// static segments before /documents/:id
	app.Get("/documents/filters", viewer, DocumentFilters(s.Documents))
	app.Get("/documents/export", viewer, ExportDocuments(s.Documents))
	app.Post("/documents/rename-suggestion", editor, SuggestRename(s.Rename))
	app.Get("/documents/:id", viewer, GetDocument(s.Documents))
	app.Get("/documents/:id/versions", viewer, DocumentVersions(s.Documents))
	app.Get("/documents/:id/download", viewer, DownloadDocument(s.Documents))
	app.Delete("/documents/:id", editor, DeleteDocument(s.Documents))

	app.Get("/documents/:id/tags", viewer, DocumentTags(s.Tags))
	app.Post("/documents/:id/tags", editor, AttachTag(s.Tags))
	app.Delete("/documents/:id/tags/:tagId", editor, DetachTag(s.Tags))

	app.Get("/tags", viewer, ListTags(s.Tags))
	app.Post("/tags", editor, CreateTag(s.Tags))
	app.Patch("/tags/:id", editor, UpdateTag(s.Tags))
	app.Delete("/tags/:id", editor, DeleteTag(s.Tags))

	app.Get("/quarantine", editor, ListQuarantine(s.Quarantine))
	app.Delete("/quarantine/:id", editor, DeleteQuarantined(s.Quarantine))
	app.Post("/quarantine/:id/recover", editor, RecoverQuarantined(s.Quarantine))

	app.Post("/shares", editor, CreateShare(s.Shares))
	app.Get("/shares/:token", AccessShare(s.Shares))

	adminGroup := app.Group("/admin", admin)
	adminGroup.Get("/shares", ListShares(s.Shares))
	adminGroup.Delete("/shares/:id", RevokeShare(s.Shares))
	adminGroup.Get("/audit-logs", ListAuditLogs(s.Audit))
	adminGroup.Post("/reconcile/:key", ReconcileChain(s.Documents))
}
