package mocks

import (
	"context"

	"dmsapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockRenameService struct {
	mock.Mock
}

func (m *MockRenameService) Suggest(ctx context.Context, filename string) (*service.RenameSuggestion, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RenameSuggestion), args.Error(1)
}
