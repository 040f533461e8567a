package mocks

import (
	"context"

	"dmsapi/internal/model"
	"dmsapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockShareService struct {
	mock.Mock
}

func (m *MockShareService) Create(ctx context.Context, in service.ShareInput, actor model.Actor) (*model.SharedLink, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SharedLink), args.Error(1)
}

func (m *MockShareService) Access(ctx context.Context, token, pin string, actor model.Actor) (*service.SharedDocument, error) {
	args := m.Called(ctx, token, pin, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SharedDocument), args.Error(1)
}

func (m *MockShareService) List(ctx context.Context, limit, offset int) (*service.ShareListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ShareListResult), args.Error(1)
}

func (m *MockShareService) Revoke(ctx context.Context, id string, actor model.Actor) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}
