package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dmsapi/internal/decision"
	"dmsapi/internal/export"
	"dmsapi/internal/http/middleware"
	"dmsapi/internal/model"
	"dmsapi/internal/naming"
	"dmsapi/internal/service"
	serviceMocks "dmsapi/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const validName = "DKC-INV-Acme-14411300001A-02122025.pdf"

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	app.Use(middleware.Identity())
	return app
}

func asRole(req *http.Request, role model.Role) *http.Request {
	req.Header.Set(middleware.UserIDHeader, "u-1")
	req.Header.Set(middleware.UserRoleHeader, string(role))
	return req
}

func decodeError(t *testing.T, resp *http.Response) errorEnvelope {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func multipartUpload(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	part.Write([]byte("hello world"))
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("success with filters", func(t *testing.T) {
		expectedRes := &service.DocumentListResult{
			Items: []model.Document{{ID: uuid.New().String(), Filename: validName}},
			Total: 1,
			Limit: 5,
		}
		mockSvc.On("List", mock.Anything, mock.MatchedBy(func(f model.DocumentFilter) bool {
			return f.Limit == 5 && f.Offset == 10 &&
				assert.ObjectsAreEqual([]string{"INV", "PO"}, f.Types) &&
				assert.ObjectsAreEqual([]string{"Acme"}, f.Companies) &&
				f.Search == "144" && f.LatestOnly && !f.SortDesc && f.SortBy == "doc_date" &&
				f.DateFrom != nil && f.DateFrom.String() == "2025-01-01" && f.DateTo == nil
		})).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet,
			"/documents?limit=5&offset=10&type=INV,%20PO,&company=Acme&search=144&sort_by=doc_date&sort_order=asc&date_from=2025-01-01", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.DocumentListResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("all versions", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, mock.MatchedBy(func(f model.DocumentFilter) bool {
			return !f.LatestOnly && f.Limit == 10 && f.SortDesc
		})).Return(&service.DocumentListResult{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents?latest_only=false", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	badQueries := map[string]string{
		"/documents?limit=abc":                               "INVALID_LIMIT",
		"/documents?offset=x":                                "INVALID_OFFSET",
		"/documents?date_from=02-12-2025":                    "INVALID_DATE",
		"/documents?date_from=2025-02-01&date_to=2025-01-01": "INVALID_DATE",
		"/documents?sort_order=sideways":                     "INVALID_SORT",
	}
	for target, code := range badQueries {
		t.Run(code+" "+target, func(t *testing.T) {
			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, code, decodeError(t, resp).Code)
		})
	}

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockUploadService)
	app := newTestApp()
	app.Post("/documents", UploadDocument(mockSvc))

	post := func(t *testing.T, filename string, fields map[string]string) *http.Response {
		body, ct := multipartUpload(t, filename, fields)
		req := asRole(httptest.NewRequest(http.MethodPost, "/documents", body), model.RoleEditor)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("created", func(t *testing.T) {
		doc := &model.Document{ID: uuid.New().String(), Filename: validName, Version: 1}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Filename == validName && in.Size == 11 && in.Reader != nil &&
				in.Intent == (decision.Intent{}) && in.Actor.UserID == "u-1" && in.Actor.Role == model.RoleEditor
		})).Return(&service.UploadResult{Status: service.StatusCreated, Document: doc}, nil).Once()

		resp := post(t, validName, nil)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var result service.UploadResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, service.StatusCreated, result.Status)
		assert.Equal(t, doc.ID, result.Document.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("flags and quarantine", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Intent == decision.Intent{ForceReplace: true, CreateVersion: true, AllowQuarantine: true}
		})).Return(&service.UploadResult{Status: service.StatusQuarantined, Quarantine: &model.QuarantineDocument{ID: "q1"}}, nil).Once()

		resp := post(t, "scan.pdf", map[string]string{"forceUpload": "true", "createVersion": "1", "quarantine": "on"})

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid filename", func(t *testing.T) {
		pe := &naming.ParseError{Kind: naming.FormatError, Filename: "scan.pdf", Message: "Invalid Naming Convention"}
		mockSvc.On("Upload", mock.Anything, mock.Anything).
			Return(nil, &service.InvalidFilenameError{Err: pe, QuarantineAvailable: true}).Once()

		resp := post(t, "scan.pdf", nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		env := decodeError(t, resp)
		assert.Equal(t, "INVALID_FILENAME", env.Code)
		assert.Equal(t, "format", env.Kind)
		assert.True(t, env.QuarantineAvailable)
	})

	t.Run("duplicate", func(t *testing.T) {
		existing := &model.Document{ID: "d-1", DocSerial: "14411300001A", Version: 2}
		mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, &service.DuplicateError{Existing: existing}).Once()

		resp := post(t, validName, nil)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		env := decodeError(t, resp)
		assert.Equal(t, "DUPLICATE", env.Code)
		require.NotNil(t, env.ExistingDocument)
		assert.Equal(t, "d-1", env.ExistingDocument.ID)
	})

	failures := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"concurrent", errors.Join(service.ErrConcurrentModification, errors.New("unique")), http.StatusConflict, "CONCURRENT_MODIFICATION"},
		{"storage", service.ErrStorage, http.StatusBadGateway, "STORAGE_ERROR"},
		{"timeout", service.ErrTimeout, http.StatusGatewayTimeout, "TIMEOUT"},
		{"unknown", errors.New("upload failed"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			resp := post(t, validName, nil)

			assert.Equal(t, tt.status, resp.StatusCode)
			env := decodeError(t, resp)
			assert.Equal(t, tt.code, env.Code)
			assert.Equal(t, tt.code == "CONCURRENT_MODIFICATION", env.Retryable)
		})
	}

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Code)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expectedDoc := &model.Document{ID: id, Filename: validName, Tags: []model.Tag{{ID: "t1", Name: "urgent"}}}
		mockSvc.On("Get", mock.Anything, id).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		assert.Len(t, result.Tags, 1)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDocumentVersionsAndDownload(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents/:id/versions", DocumentVersions(mockSvc))
	app.Get("/documents/:id/download", DownloadDocument(mockSvc))
	id := uuid.New().String()

	t.Run("versions", func(t *testing.T) {
		mockSvc.On("Versions", mock.Anything, id).
			Return([]model.Document{{ID: "a", Version: 1}, {ID: id, Version: 2, IsLatest: true}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/versions", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Data []model.Document `json:"data"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Len(t, body.Data, 2)
	})

	t.Run("download json", func(t *testing.T) {
		mockSvc.On("DownloadURL", mock.Anything, id, mock.Anything).
			Return(&service.DownloadLink{URL: "https://minio/signed", Filename: validName}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var link service.DownloadLink
		json.NewDecoder(resp.Body).Decode(&link)
		assert.Equal(t, "https://minio/signed", link.URL)
	})

	t.Run("download redirect", func(t *testing.T) {
		mockSvc.On("DownloadURL", mock.Anything, id, mock.Anything).
			Return(&service.DownloadLink{URL: "https://minio/signed"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download?redirect=true", nil))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://minio/signed", resp.Header.Get("Location"))
	})

	t.Run("storage down", func(t *testing.T) {
		mockSvc.On("DownloadURL", mock.Anything, id, mock.Anything).Return(nil, service.ErrStorage).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id, mock.MatchedBy(func(a model.Actor) bool {
			return a.UserID == "u-1"
		})).Return(nil).Once()

		req := asRole(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil), model.RoleEditor)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id, mock.Anything).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id, mock.Anything).Return(errors.New("delete error")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDocumentFilters(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents/filters", DocumentFilters(mockSvc))

	mockSvc.On("Filters", mock.Anything).Return(&model.Facets{
		Types:     []model.TypeFacet{{Code: "INV", Label: "Invoice", Category: "financial", Count: 3}},
		Companies: []string{"Acme"},
	}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/filters", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var facets model.Facets
	json.NewDecoder(resp.Body).Decode(&facets)
	assert.Equal(t, "Invoice", facets.Types[0].Label)
}

func TestExportDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents/export", ExportDocuments(mockSvc))

	t.Run("csv", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything, mock.Anything, export.CSV, mock.MatchedBy(func(f model.DocumentFilter) bool {
			return assert.ObjectsAreEqual([]string{"INV"}, f.Types)
		}), mock.Anything).Return(service.ExportResult{Rows: 2, Matched: 2}, nil, "Type,Company\nINV,Acme\n").Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/export?type=INV", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, export.CSV.ContentType(), resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "dms-export-")
		assert.Equal(t, "2", resp.Header.Get("X-Export-Count"))
		assert.Equal(t, "false", resp.Header.Get("X-Export-Truncated"))
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.True(t, strings.HasPrefix(buf.String(), "Type,Company"))
	})

	t.Run("truncated", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything, mock.Anything, export.CSV, mock.MatchedBy(func(f model.DocumentFilter) bool {
			return assert.ObjectsAreEqual([]string{"Globex"}, f.Companies)
		}), mock.Anything).Return(service.ExportResult{Rows: 10000, Matched: 12500}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/export?company=Globex", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "10000", resp.Header.Get("X-Export-Count"))
		assert.Equal(t, "12500", resp.Header.Get("X-Export-Matched"))
		assert.Equal(t, "true", resp.Header.Get("X-Export-Truncated"))
	})

	t.Run("bad format", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/export?format=pdf", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_FORMAT", decodeError(t, resp).Code)
	})

	t.Run("failure is json", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything, mock.Anything, export.XLSX, mock.Anything, mock.Anything).
			Return(service.ExportResult{}, service.ErrTimeout).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/export?format=xlsx", nil))

		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
		assert.Equal(t, "TIMEOUT", decodeError(t, resp).Code)
	})
}

func TestSuggestRename(t *testing.T) {
	mockSvc := new(serviceMocks.MockRenameService)
	app := newTestApp()
	app.Post("/documents/rename-suggestion", SuggestRename(mockSvc))

	send := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/documents/rename-suggestion", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		sg := &service.RenameSuggestion{Original: "scan.pdf", Valid: true}
		sg.Suggested = validName
		mockSvc.On("Suggest", mock.Anything, "scan.pdf").Return(sg, nil).Once()

		resp := send(`{"filename":"scan.pdf"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var out map[string]any
		json.NewDecoder(resp.Body).Decode(&out)
		assert.Equal(t, validName, out["suggested"])
		assert.Equal(t, true, out["valid"])
	})

	t.Run("disabled", func(t *testing.T) {
		mockSvc.On("Suggest", mock.Anything, "scan.pdf").Return(nil, service.ErrSuggestionsDisabled).Once()

		resp := send(`{"filename":"scan.pdf"}`)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("bad body", func(t *testing.T) {
		resp := send(`{`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Code)
	})
}
