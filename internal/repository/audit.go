package repository

import (
	"context"

	"dmsapi/internal/model"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, f model.AuditFilter) (*PageResult[model.AuditLog], error)
}
