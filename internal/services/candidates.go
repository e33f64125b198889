package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"gorm.io/gorm"
)

func requireAssignment(m *mutation) error {
	if m.doc.Kind != models.KindAssignment {
		return types.NewError(types.KindInvalidInput, m.doc.Kind, "only assignments have candidates")
	}
	return nil
}

func findCandidate(tx *gorm.DB, documentID uint64, person string) (*models.Candidate, error) {
	var c models.Candidate
	err := tx.Where("document_id = ? AND person_id = ?", documentID, person).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("candidate", person)
		}
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	return &c, nil
}

// AddCandidate nominates person. Anyone who may participate can nominate
// themselves; nominating others or unblocking needs the manage capability.
func (l *Lifecycle) AddCandidate(ctx context.Context, documentID uint64, person string, expected *uint64, actor Actor) (*models.Candidate, error) {
	if person == "" {
		person = actor.ID
	}

	var result models.Candidate
	err := l.mutate(ctx, "add_candidate", documentID, expected, actor, func(m *mutation) error {
		if err := requireAssignment(m); err != nil {
			return err
		}
		manage := m.manage()
		if !manage && (person != actor.ID || !actor.CanParticipate(m.doc.Kind)) {
			return forbidden("nominate candidates")
		}

		existing, err := findCandidate(m.tx, documentID, person)
		if err == nil {
			if !existing.Blocked || !manage {
				return types.NewError(types.KindInvalidInput, person, "already a candidate")
			}
			if err := m.tx.Model(existing).Update("blocked", false).Error; err != nil {
				return fmt.Errorf("failed to unblock candidate: %w", err)
			}
			existing.Blocked = false
			result = *existing
			m.touch()
			m.log("Candidate unblocked", map[string]any{"person": person})
			return nil
		}
		if types.KindOf(err) != types.KindNotFound {
			return err
		}

		var weight int
		if err := m.tx.Model(&models.Candidate{}).
			Where("document_id = ?", documentID).
			Select("COALESCE(MAX(weight), 0)").
			Scan(&weight).Error; err != nil {
			return fmt.Errorf("failed to order candidates: %w", err)
		}

		result = models.Candidate{DocumentID: documentID, PersonID: person, Weight: weight + 1}
		if err := m.tx.Create(&result).Error; err != nil {
			return fmt.Errorf("failed to add candidate: %w", err)
		}
		m.touch()
		m.log("Candidate added", map[string]any{"person": person})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveCandidate withdraws a candidacy. With blocked set the candidate
// stays listed but gets no option on future ballots.
func (l *Lifecycle) RemoveCandidate(ctx context.Context, documentID uint64, person string, blocked bool, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "remove_candidate", documentID, expected, actor, func(m *mutation) error {
		if err := requireAssignment(m); err != nil {
			return err
		}
		manage := m.manage()
		if !manage && person != actor.ID {
			return forbidden("remove other candidates")
		}

		c, err := findCandidate(m.tx, documentID, person)
		if err != nil {
			return err
		}
		if blocked {
			if c.Blocked {
				return nil
			}
			if err := m.tx.Model(c).Update("blocked", true).Error; err != nil {
				return fmt.Errorf("failed to block candidate: %w", err)
			}
			m.touch()
			m.log("Candidate blocked", map[string]any{"person": person})
			return nil
		}

		if err := m.tx.Delete(c).Error; err != nil {
			return fmt.Errorf("failed to remove candidate: %w", err)
		}
		m.touch()
		m.log("Candidate removed", map[string]any{"person": person})
		return nil
	})
}

// SetElected marks a candidate as elected or not elected
func (l *Lifecycle) SetElected(ctx context.Context, documentID uint64, person string, elected bool, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "set_elected", documentID, expected, actor, func(m *mutation) error {
		if err := requireAssignment(m); err != nil {
			return err
		}
		if !m.manage() {
			return forbidden("elect candidates")
		}
		c, err := findCandidate(m.tx, documentID, person)
		if err != nil {
			return err
		}
		if c.Elected == elected {
			return nil
		}
		if err := m.tx.Model(c).Update("elected", elected).Error; err != nil {
			return fmt.Errorf("failed to update candidate: %w", err)
		}
		m.touch()
		message := "Candidate elected"
		if !elected {
			message = "Candidate not elected"
		}
		m.log(message, map[string]any{"person": person})
		return nil
	})
}
