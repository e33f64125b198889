package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/localnerve/assemblydb/internal/models"
	"gorm.io/gorm"
)

// Bootstrap installs every workflow of specs that does not exist yet. An
// existing workflow with the same name is left untouched, so running it on
// every start is safe. It returns the names of the workflows it created.
func Bootstrap(ctx context.Context, db *gorm.DB, specs []Spec, logger *slog.Logger) ([]string, error) {
	logger = ResolveLogger(logger)
	var created []string

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return created, err
		}

		installed := false
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.Workflow
			err := tx.Where("name = ?", spec.Name).First(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up workflow %q: %w", spec.Name, err)
			}

			installed = true
			return install(tx, spec)
		})
		if err != nil {
			logger.Error("workflow bootstrap failed",
				"event", "workflow_bootstrap_failed",
				"module", "workflow",
				"layer", "bootstrap",
				"workflow", spec.Name,
				"error", err.Error(),
			)
			return created, err
		}
		if installed {
			created = append(created, spec.Name)
			logger.Info("workflow installed",
				"event", "workflow_installed",
				"module", "workflow",
				"layer", "bootstrap",
				"workflow", spec.Name,
				"states", len(spec.States),
			)
		}
	}
	return created, nil
}

func install(tx *gorm.DB, spec Spec) error {
	wf := models.Workflow{Name: spec.Name, Kind: spec.Kind}
	if err := tx.Create(&wf).Error; err != nil {
		return fmt.Errorf("failed to create workflow %q: %w", spec.Name, err)
	}

	ids := make(map[string]uint64, len(spec.States))
	for _, ss := range spec.States {
		st := models.State{
			WorkflowID:            wf.WorkflowID,
			Name:                  ss.Name,
			ActionWord:            ss.ActionWord,
			RecommendationLabel:   ss.RecommendationLabel,
			AllowSupport:          ss.AllowSupport,
			AllowCreatePoll:       ss.AllowCreatePoll,
			AllowSubmitterEdit:    ss.AllowSubmitterEdit,
			RequiresNewVersion:    ss.RequiresNewVersion,
			DontSetIdentifier:     ss.DontSetIdentifier,
			LeaveOldVersionActive: ss.LeaveOldVersionActive,
		}
		if err := tx.Omit("NextStates").Create(&st).Error; err != nil {
			return fmt.Errorf("failed to create state %q: %w", ss.Name, err)
		}
		ids[ss.Name] = st.StateID
	}

	var edges []models.StateEdge
	for _, ss := range spec.States {
		for _, next := range ss.NextStates {
			edges = append(edges, models.StateEdge{StateID: ids[ss.Name], NextStateID: ids[next]})
		}
	}
	if len(edges) > 0 {
		if err := tx.Create(&edges).Error; err != nil {
			return fmt.Errorf("failed to create transitions of %q: %w", spec.Name, err)
		}
	}

	first := ids[spec.FirstState]
	if err := tx.Model(&wf).Update("first_state_id", first).Error; err != nil {
		return fmt.Errorf("failed to set first state of %q: %w", spec.Name, err)
	}
	return nil
}

// LoadGraph reads every workflow from the store and builds the arena
func LoadGraph(ctx context.Context, db *gorm.DB) (*Graph, error) {
	var workflows []models.Workflow
	err := db.WithContext(ctx).
		Preload("States").
		Preload("States.NextStates").
		Order("workflow_id").
		Find(&workflows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}
	return NewGraph(workflows)
}
