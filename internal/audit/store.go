package audit

import (
	"context"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"
)

// StoreSink persists entries in the audit_logs table.
type StoreSink struct {
	repo repository.AuditRepository
}

func NewStoreSink(repo repository.AuditRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Name() string { return "postgres" }

func (s *StoreSink) Write(ctx context.Context, log model.AuditLog) error {
	return s.repo.Create(ctx, &log)
}
