package mocks

import (
	"context"
	"time"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockShareRepository struct {
	mock.Mock
}

func (m *MockShareRepository) Create(ctx context.Context, link *model.SharedLink) (*model.SharedLink, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SharedLink), args.Error(1)
}

func (m *MockShareRepository) FindByToken(ctx context.Context, token string) (*model.SharedLink, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SharedLink), args.Error(1)
}

func (m *MockShareRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.SharedLink], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.SharedLink]), args.Error(1)
}

func (m *MockShareRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockShareRepository) IncrementView(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}
