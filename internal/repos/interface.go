package repos

import (
	"context"

	"github.com/gi4nks/promptchain/internal/models"
)

// RepositoryInterface defines the methods that a run store must implement
type RepositoryInterface interface {
	Put(ctx context.Context, run models.Run) error
	Get(id string) (*models.Run, error)
	Latest() (*models.Run, error)
	GetLimitRuns(limit int) ([]models.Run, error)
	GetAllRuns() ([]models.Run, error)
	Delete(id string) error
}
