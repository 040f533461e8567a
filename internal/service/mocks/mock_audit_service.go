package mocks

import (
	"context"

	"dmsapi/internal/model"
	"dmsapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) List(ctx context.Context, f model.AuditFilter) (*service.AuditListResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuditListResult), args.Error(1)
}
