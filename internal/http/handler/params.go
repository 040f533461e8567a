package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"dmsapi/internal/model"
)

// badRequest is a client input problem reported with its own code.
type badRequest struct {
	code    string
	message string
}

func (e *badRequest) Error() string { return e.message }

func writeBadRequest(c *fiber.Ctx, err error) error {
	if br, ok := err.(*badRequest); ok {
		return writeError(c, fiber.StatusBadRequest, br.code, br.message)
	}
	return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "bad request")
}

// pagination reads limit and offset. Bounds are enforced by the services.
func pagination(c *fiber.Ctx, defLimit int) (limit, offset int, err error) {
	limit, err = strconv.Atoi(c.Query("limit", strconv.Itoa(defLimit)))
	if err != nil {
		return 0, 0, &badRequest{"INVALID_LIMIT", "invalid limit"}
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, &badRequest{"INVALID_OFFSET", "invalid offset"}
	}
	return limit, offset, nil
}

// uuidParam validates a path parameter holding a record id.
func uuidParam(c *fiber.Ctx, name string) (string, error) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", &badRequest{"INVALID_ID", "invalid id format"}
	}
	return id, nil
}

// csvQuery splits a comma separated query value, dropping blanks.
func csvQuery(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func dateQuery(c *fiber.Ctx, key string) (*model.Date, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, &badRequest{"INVALID_DATE", key + " must be YYYY-MM-DD"}
	}
	d := model.NewDate(t)
	return &d, nil
}

// parseBool accepts the checkbox-style values browsers submit.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// documentFilter builds a listing filter from the query string:
// search, type, company, tag (comma separated), date_from, date_to,
// latest_only (default true), sort_by, sort_order (asc|desc), limit, offset.
func documentFilter(c *fiber.Ctx) (model.DocumentFilter, error) {
	limit, offset, err := pagination(c, 10)
	if err != nil {
		return model.DocumentFilter{}, err
	}
	from, err := dateQuery(c, "date_from")
	if err != nil {
		return model.DocumentFilter{}, err
	}
	to, err := dateQuery(c, "date_to")
	if err != nil {
		return model.DocumentFilter{}, err
	}
	if from != nil && to != nil && to.Before(from.Time) {
		return model.DocumentFilter{}, &badRequest{"INVALID_DATE", "date_to is before date_from"}
	}

	latest := true
	if v := c.Query("latest_only"); v != "" {
		latest = parseBool(v)
	}
	desc := true
	switch strings.ToLower(c.Query("sort_order")) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return model.DocumentFilter{}, &badRequest{"INVALID_SORT", "sort_order must be asc or desc"}
	}

	return model.DocumentFilter{
		Types:      csvQuery(c, "type"),
		Companies:  csvQuery(c, "company"),
		Search:     strings.TrimSpace(c.Query("search")),
		DateFrom:   from,
		DateTo:     to,
		TagIDs:     csvQuery(c, "tag"),
		LatestOnly: latest,
		SortBy:     c.Query("sort_by"),
		SortDesc:   desc,
		Limit:      limit,
		Offset:     offset,
	}, nil
}
