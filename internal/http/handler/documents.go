package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/decision"
	"dmsapi/internal/export"
	"dmsapi/internal/http/middleware"
	"dmsapi/internal/service"
)

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if db == nil || db.PingContext(ctx) != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200 while the process is up.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDocuments godoc
// @Summary List documents
// @Tags documents
// @Param search query string false "substring of file name, company or serial"
// @Param type query string false "comma separated type codes"
// @Param company query string false "comma separated companies"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param latest_only query bool false "only latest versions (default true)"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} service.DocumentListResult
// @Router /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := documentFilter(c)
		if err != nil {
			return writeBadRequest(c, err)
		}
		res, err := svc.List(c.UserContext(), f)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument godoc
// @Summary Upload a document
// @Description The file name must follow DKC-<TYPE>-<COMPANY>-<SERIAL>-<DDMMYYYY>.
// @Tags documents
// @Accept multipart/form-data
// @Param file formData file true "document"
// @Param forceUpload formData bool false "replace the existing chain"
// @Param createVersion formData bool false "append a new version"
// @Param quarantine formData bool false "hold a badly named file for later recovery"
// @Success 201 {object} service.UploadResult
// @Success 202 {object} service.UploadResult
// @Router /documents [post]
func UploadDocument(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		res, err := svc.Upload(c.UserContext(), service.UploadInput{
			Reader:      f,
			Filename:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Intent: decision.Intent{
				ForceReplace:    parseBool(c.FormValue("forceUpload")),
				CreateVersion:   parseBool(c.FormValue("createVersion")),
				AllowQuarantine: parseBool(c.FormValue("quarantine")),
			},
			Actor: middleware.ActorFrom(c),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(uploadStatus(res.Status)).JSON(res)
	}
}

func uploadStatus(s service.UploadStatus) int {
	if s == service.StatusQuarantined {
		return fiber.StatusAccepted
	}
	return fiber.StatusCreated
}

// GetDocument godoc
// @Summary Get a document with its tags
// @Tags documents
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Router /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DocumentVersions returns the whole version chain of a document, oldest first.
func DocumentVersions(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		versions, err := svc.Versions(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": versions})
	}
}

// DownloadDocument returns a presigned URL, or redirects to it with ?redirect=true.
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "id")
		if err != nil {
			return writeBadRequest(c, err)
		}
		link, err := svc.DownloadURL(c.UserContext(), id, middleware.ActorFrom(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		if parseBool(c.Query("redirect")) {
			return c.Redirect(link.URL, fiber.StatusFound)
		}
		return c.JSON(link)
	}
}

func DeleteDocument(svc service.DocumentService) fiber.Handler {
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

// DocumentFilters godoc
// @Summary Distinct types and companies for filter dropdowns
// @Tags documents
// @Success 200 {object} model.Facets
// @Router /documents/filters [get]
func DocumentFilters(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		facets, err := svc.Filters(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(facets)
	}
}

// ExportDocuments godoc
// @Summary Export the latest versions matching the filter
// @Tags documents
// @Param format query string false "csv (default) or xlsx"
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /documents/export [get]
func ExportDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format, err := export.ParseFormat(c.Query("format"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		}
		f, err := documentFilter(c)
		if err != nil {
			return writeBadRequest(c, err)
		}

		// Buffer the file so a failure mid-export still yields a JSON error.
		var buf bytes.Buffer
		res, err := svc.Export(c.UserContext(), &buf, format, f, middleware.ActorFrom(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(fiber.HeaderContentType, format.ContentType())
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+format.Filename(time.Now())+`"`)
		c.Set("X-Export-Count", strconv.Itoa(res.Rows))
		c.Set("X-Export-Matched", strconv.Itoa(res.Matched))
		c.Set("X-Export-Truncated", strconv.FormatBool(res.Truncated()))
		return c.Send(buf.Bytes())
	}
}

type renameRequest struct {
	Filename string `json:"filename"`
}

// SuggestRename proposes a convention-compliant name. The result is advisory.
func SuggestRename(svc service.RenameService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req renameRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := svc.Suggest(c.UserContext(), req.Filename)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ReconcileChain repairs the latest flag of one identity key's version chain.
func ReconcileChain(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := url.PathUnescape(c.Params("key"))
		if err != nil || strings.TrimSpace(key) == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KEY", "invalid identity key")
		}
		res, err := svc.Reconcile(c.UserContext(), key)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}
