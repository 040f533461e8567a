package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/http/middleware"
	"dmsapi/internal/model"
	"dmsapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Upload rejections carry enough context for the client to choose a retry.
	Kind                string          `json:"kind,omitempty"`
	QuarantineAvailable bool            `json:"quarantine_available,omitempty"`
	ExistingDocument    *model.Document `json:"existing_document,omitempty"`
	Retryable           bool            `json:"retryable,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeEnvelope(c, status, errorEnvelope{Code: code, Message: message})
}

func writeEnvelope(c *fiber.Ctx, status int, env errorEnvelope) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     env,
	})
}

// writeServiceError maps service errors onto HTTP responses. Anything
// unrecognised is reported as a generic 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	var invalid *service.InvalidFilenameError
	if errors.As(err, &invalid) {
		return writeEnvelope(c, fiber.StatusBadRequest, errorEnvelope{
			Code:                "INVALID_FILENAME",
			Message:             invalid.Error(),
			Kind:                string(invalid.Err.Kind),
			QuarantineAvailable: invalid.QuarantineAvailable,
		})
	}
	var dup *service.DuplicateError
	if errors.As(err, &dup) {
		return writeEnvelope(c, fiber.StatusConflict, errorEnvelope{
			Code:             "DUPLICATE",
			Message:          dup.Error(),
			ExistingDocument: dup.Existing,
		})
	}

	switch {
	case errors.Is(err, service.ErrConcurrentModification):
		return writeEnvelope(c, fiber.StatusConflict, errorEnvelope{
			Code:      "CONCURRENT_MODIFICATION",
			Message:   "document was modified concurrently, please retry",
			Retryable: true,
		})
	case errors.Is(err, service.ErrTimeout):
		return writeError(c, fiber.StatusGatewayTimeout, "TIMEOUT", "operation timed out")
	case errors.Is(err, service.ErrStorage):
		return writeError(c, fiber.StatusBadGateway, "STORAGE_ERROR", "storage backend unavailable")

	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrQuarantineNotFound),
		errors.Is(err, service.ErrTagNotFound),
		errors.Is(err, service.ErrShareNotFound),
		errors.Is(err, service.ErrTagNotAttached):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())

	case errors.Is(err, service.ErrTagExists),
		errors.Is(err, service.ErrTagAlreadyAttached):
		return writeError(c, fiber.StatusConflict, "CONFLICT", err.Error())

	case errors.Is(err, service.ErrShareExpired):
		return writeError(c, fiber.StatusGone, "SHARE_EXPIRED", err.Error())
	case errors.Is(err, service.ErrShareExhausted):
		return writeError(c, fiber.StatusGone, "SHARE_EXHAUSTED", err.Error())
	case errors.Is(err, service.ErrShareRevoked):
		return writeError(c, fiber.StatusGone, "SHARE_REVOKED", err.Error())
	case errors.Is(err, service.ErrPINRequired):
		return writeError(c, fiber.StatusUnauthorized, "PIN_REQUIRED", err.Error())
	case errors.Is(err, service.ErrInvalidPIN):
		return writeError(c, fiber.StatusForbidden, "INVALID_PIN", err.Error())

	case errors.Is(err, service.ErrSuggestionsDisabled):
		return writeError(c, fiber.StatusServiceUnavailable, "SUGGESTIONS_DISABLED", err.Error())

	case errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrFilenameRequired),
		errors.Is(err, service.ErrReaderNil),
		errors.Is(err, service.ErrTagNameRequired),
		errors.Is(err, service.ErrInvalidColor),
		errors.Is(err, service.ErrInvalidExpiry),
		errors.Is(err, service.ErrInvalidViews):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", "insufficient role")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "too many requests")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
