package mocks

import (
	"context"

	"dmsapi/internal/model"
	"dmsapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockTagService struct {
	mock.Mock
}

func (m *MockTagService) List(ctx context.Context) ([]model.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

func (m *MockTagService) Create(ctx context.Context, in service.TagInput) (*model.Tag, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tag), args.Error(1)
}

func (m *MockTagService) Update(ctx context.Context, id string, in service.TagInput) (*model.Tag, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tag), args.Error(1)
}

func (m *MockTagService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTagService) ForDocument(ctx context.Context, documentID string) ([]model.Tag, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

func (m *MockTagService) Attach(ctx context.Context, documentID, tagID string, actor model.Actor) error {
	args := m.Called(ctx, documentID, tagID, actor)
	return args.Error(0)
}

func (m *MockTagService) Detach(ctx context.Context, documentID, tagID string, actor model.Actor) error {
	args := m.Called(ctx, documentID, tagID, actor)
	return args.Error(0)
}
