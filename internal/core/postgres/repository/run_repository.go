package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type runRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *gorm.DB) ports.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, run *domain.WorkflowRun) error {
	if len(run.Phases) == 0 {
		phases, err := json.Marshal(initialPhases(run.Kind))
		if err != nil {
			return err
		}
		run.Phases = datatypes.JSON(phases)
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *runRepository) GetByID(ctx context.Context, runID uuid.UUID) (*domain.WorkflowRun, error) {
	var run domain.WorkflowRun
	err := r.db.WithContext(ctx).Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ApplyTransition folds one phase event into the stored phase list.
// The row is locked for the read-modify-write so concurrent events for the
// same run serialize.
func (r *runRepository) ApplyTransition(ctx context.Context, event domain.PhaseTransitionEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var run domain.WorkflowRun
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", event.RunID).
			First(&run).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrRunNotFound, event.RunID)
		}
		if err != nil {
			return err
		}

		var phases []domain.PhaseSnapshot
		if len(run.Phases) > 0 {
			if err := json.Unmarshal(run.Phases, &phases); err != nil {
				return fmt.Errorf("decode phases of run %s: %w", run.ID, err)
			}
		}

		phases, gen, applied := applyEvent(run.Kind, phases, run.Generation, event)
		if !applied {
			return nil
		}
		encoded, err := json.Marshal(phases)
		if err != nil {
			return err
		}
		return tx.Model(&domain.WorkflowRun{}).
			Where("id = ?", run.ID).
			Updates(map[string]any{
				"phases":     datatypes.JSON(encoded),
				"generation": gen,
			}).Error
	})
}

// Finish records the result of a generation. A result from an older
// generation than the stored one is a no-op.
func (r *runRepository) Finish(ctx context.Context, runID uuid.UUID, result domain.RunResult) error {
	updates := map[string]any{
		"status":     result.Status,
		"generation": result.Generation,
		"last_error": result.LastError,
	}
	if len(result.Phases) > 0 {
		phases, err := json.Marshal(result.Phases)
		if err != nil {
			return err
		}
		updates["phases"] = datatypes.JSON(phases)
	}
	if result.Outcome != nil {
		updates["outcome"] = datatypes.JSON(result.Outcome)
	}
	return r.db.WithContext(ctx).
		Model(&domain.WorkflowRun{}).
		Where("id = ? AND generation <= ?", runID, result.Generation).
		Updates(updates).Error
}

func (r *runRepository) MarkPending(ctx context.Context, runID uuid.UUID) error {
	return r.setStatus(ctx, runID, domain.RunPending)
}

func (r *runRepository) MarkRunning(ctx context.Context, runID uuid.UUID) error {
	return r.setStatus(ctx, runID, domain.RunRunning)
}

func (r *runRepository) setStatus(ctx context.Context, runID uuid.UUID, status domain.RunStatus) error {
	res := r.db.WithContext(ctx).
		Model(&domain.WorkflowRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{"status": status, "last_error": ""})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	return nil
}

func (r *runRepository) UpdatePayload(ctx context.Context, runID uuid.UUID, payload []byte) error {
	return r.db.WithContext(ctx).
		Model(&domain.WorkflowRun{}).
		Where("id = ?", runID).
		Update("payload", datatypes.JSON(payload)).Error
}
