package repos

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
)

const (
	runPrefix  = "run:"
	timePrefix = "time:"
	timeLayout = "20060102T150405.000000000Z0700"
)

// Repository keeps the runs of the current process. The badger instance is
// opened in memory, so nothing survives a restart.
type Repository struct {
	logger *zap.Logger
	db     *badger.DB
}

// NewRepository creates a new in-memory repository instance
func NewRepository(logger *zap.Logger) (*Repository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.NewError(errors.ErrRepositoryOpen, "failed to open run store", err)
	}

	return &Repository{logger: logger, db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func timeKey(run models.Run) []byte {
	return []byte(timePrefix + run.StartedAt.UTC().Format(timeLayout) + ":" + run.ID)
}

// Put stores a run, replacing any previous version with the same ID.
// Credentials are stripped before the run is serialized.
func (r *Repository) Put(ctx context.Context, run models.Run) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if run.ID == "" {
		return errors.NewValidationError("run id is required")
	}

	run.Request = run.Request.WithoutCredential()
	data, err := json.Marshal(run)
	if err != nil {
		return errors.NewError(errors.ErrRepositoryWrite, "failed to marshal run", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(runPrefix+run.ID), data); err != nil {
			return err
		}
		return txn.Set(timeKey(run), []byte(run.ID))
	})
	if err != nil {
		return errors.NewError(errors.ErrRepositoryWrite, "failed to store run", err)
	}

	r.logger.Debug("Run stored",
		zap.String("runId", run.ID),
		zap.Stringer("state", run.State))
	return nil
}

// Get retrieves a run by ID
func (r *Repository) Get(id string) (*models.Run, error) {
	var run models.Run

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})

	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.NewError(errors.ErrNotFound, fmt.Sprintf("run not found: %s", id), nil)
	}
	if err != nil {
		return nil, errors.NewError(errors.ErrRepositoryRead, "failed to read run", err)
	}
	return &run, nil
}

// Latest returns the most recently started run.
func (r *Repository) Latest() (*models.Run, error) {
	runs, err := r.GetLimitRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, errors.NewError(errors.ErrNotFound, "no runs in this session", nil)
	}
	return &runs[0], nil
}

// GetLimitRuns retrieves the most recent runs up to the specified limit,
// newest first.
func (r *Repository) GetLimitRuns(limit int) ([]models.Run, error) {
	var runs []models.Run

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(timePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the last key sharing the prefix.
		seek := append([]byte(timePrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(runs) < limit; it.Next() {
			var runID []byte
			err := it.Item().Value(func(val []byte) error {
				runID = append([]byte{}, val...)
				return nil
			})
			if err != nil {
				continue
			}

			runItem, err := txn.Get([]byte(runPrefix + string(runID)))
			if err != nil {
				continue
			}

			err = runItem.Value(func(val []byte) error {
				var run models.Run
				if err := json.Unmarshal(val, &run); err != nil {
					return err
				}
				runs = append(runs, run)
				return nil
			})
			if err != nil {
				r.logger.Warn("Skipping unreadable run", zap.String("runId", string(runID)), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewError(errors.ErrRepositoryRead, "failed to list runs", err)
	}

	return runs, nil
}

// GetAllRuns retrieves all runs, newest first.
func (r *Repository) GetAllRuns() ([]models.Run, error) {
	return r.GetLimitRuns(int(^uint(0) >> 1))
}

// Delete removes a run by ID
func (r *Repository) Delete(id string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		runKey := []byte(runPrefix + id)
		item, err := txn.Get(runKey)
		if err != nil {
			return err
		}

		var run models.Run
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		}); err != nil {
			return err
		}

		if err := txn.Delete(runKey); err != nil {
			return err
		}
		return txn.Delete(timeKey(run))
	})

	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NewError(errors.ErrNotFound, fmt.Sprintf("run not found: %s", id), nil)
	}
	if err != nil {
		return errors.NewError(errors.ErrRepositoryWrite, "failed to delete run", err)
	}
	return nil
}

// Count returns the number of stored runs.
func (r *Repository) Count() (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
