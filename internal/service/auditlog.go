package service

import (
	"context"
	"time"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// AuditListResult is a page of audit entries, newest first.
type AuditListResult struct {
	Items []model.AuditLog `json:"data"`
	Total int              `json:"total"`
}

type AuditService interface {
	List(ctx context.Context, f model.AuditFilter) (*AuditListResult, error)
}

type auditService struct {
	repo    repository.AuditRepository
	timeout deadline
}

func NewAuditService(repo repository.AuditRepository, timeout time.Duration) AuditService {
	return &auditService{repo: repo, timeout: deadline(timeout)}
}

func (s *auditService) List(ctx context.Context, f model.AuditFilter) (*AuditListResult, error) {
	if f.Limit <= 0 {
		f.Limit = defaultAuditLimit
	}
	if f.Limit > maxAuditLimit {
		f.Limit = maxAuditLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	res, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, external(err)
	}
	return &AuditListResult{Items: res.Items, Total: res.Total}, nil
}
