package mocks

import (
	"context"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockQuarantineRepository struct {
	mock.Mock
}

func (m *MockQuarantineRepository) Create(ctx context.Context, q *model.QuarantineDocument) (*model.QuarantineDocument, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuarantineDocument), args.Error(1)
}

func (m *MockQuarantineRepository) FindByID(ctx context.Context, id string) (*model.QuarantineDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuarantineDocument), args.Error(1)
}

func (m *MockQuarantineRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.QuarantineDocument], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.QuarantineDocument]), args.Error(1)
}

func (m *MockQuarantineRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
