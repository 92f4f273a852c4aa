package mocks

import (
	"context"
	"net/http"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of editor.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Save(ctx context.Context, doc models.WorkflowDocument) (models.MessageResponse, error) {
	args := m.Called(ctx, doc)

	return args.Get(0).(models.MessageResponse), args.Error(1)
}

func (m *MockBackend) Run(ctx context.Context, doc models.WorkflowDocument, headers http.Header) (models.RunResult, error) {
	args := m.Called(ctx, doc, headers)

	return args.Get(0).(models.RunResult), args.Error(1)
}

func (m *MockBackend) Workflows(ctx context.Context, owner string) ([]models.WorkflowDocument, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.WorkflowDocument), args.Error(1)
}

func (m *MockBackend) Delete(ctx context.Context, id string) (models.MessageResponse, error) {
	args := m.Called(ctx, id)

	return args.Get(0).(models.MessageResponse), args.Error(1)
}

func (m *MockBackend) Schedule(ctx context.Context, id string, minutes int) (models.MessageResponse, error) {
	args := m.Called(ctx, id, minutes)

	return args.Get(0).(models.MessageResponse), args.Error(1)
}
