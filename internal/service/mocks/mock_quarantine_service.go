package mocks

import (
	"context"

	"dmsapi/internal/decision"
	"dmsapi/internal/model"
	"dmsapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockQuarantineService struct {
	mock.Mock
}

func (m *MockQuarantineService) List(ctx context.Context, limit, offset int) (*service.QuarantineListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QuarantineListResult), args.Error(1)
}

func (m *MockQuarantineService) Delete(ctx context.Context, id string, actor model.Actor) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockQuarantineService) Recover(ctx context.Context, id, filename string, intent decision.Intent, actor model.Actor) (*service.UploadResult, error) {
	args := m.Called(ctx, id, filename, intent, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}
