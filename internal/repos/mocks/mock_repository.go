package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gi4nks/promptchain/internal/models"
)

// MockRepository is a mock implementation of the repository interface for testing
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// Put implements Repository.Put
func (m *MockRepository) Put(ctx context.Context, run models.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// Get implements Repository.Get
func (m *MockRepository) Get(id string) (*models.Run, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Run), args.Error(1)
}

// Latest implements Repository.Latest
func (m *MockRepository) Latest() (*models.Run, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Run), args.Error(1)
}

// GetLimitRuns implements Repository.GetLimitRuns
func (m *MockRepository) GetLimitRuns(limit int) ([]models.Run, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Run), args.Error(1)
}

// GetAllRuns implements Repository.GetAllRuns
func (m *MockRepository) GetAllRuns() ([]models.Run, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Run), args.Error(1)
}

// Delete implements Repository.Delete
func (m *MockRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}
