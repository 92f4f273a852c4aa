package mocks

import (
	"context"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockGenerator is a mock implementation of the prompt generator used by
// the inspector, the runner and the API.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (models.GenerateResult, error) {
	args := m.Called(ctx, prompt)

	return args.Get(0).(models.GenerateResult), args.Error(1)
}
