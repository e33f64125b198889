package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"gorm.io/gorm"
)

// Support adds person to the document's supporters. person defaults to the
// actor; only managers act for someone else.
func (l *Lifecycle) Support(ctx context.Context, documentID uint64, person string, expected *uint64, actor Actor) error {
	if person == "" {
		person = actor.ID
	}
	return l.mutate(ctx, "support", documentID, expected, actor, func(m *mutation) error {
		if person != actor.ID && !m.manage() {
			return forbidden("support on behalf of others")
		}
		if !m.manage() && !actor.CanParticipate(m.doc.Kind) {
			return forbidden("support documents")
		}
		if !m.state.AllowSupport {
			return types.NewError(types.KindInvalidTransition, m.state.Name, "support is not possible in this state")
		}

		submitter, err := m.isSubmitter(person)
		if err != nil {
			return err
		}
		if submitter {
			return types.NewError(types.KindSelfSupportForbidden, person, "submitters cannot support their own document")
		}

		var existing models.Supporter
		err = m.tx.Where("document_id = ? AND person_id = ?", documentID, person).First(&existing).Error
		if err == nil {
			return types.NewError(types.KindAlreadySupporting, person, "already supporting")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up supporter: %w", err)
		}

		if err := m.tx.Create(&models.Supporter{DocumentID: documentID, PersonID: person}).Error; err != nil {
			return fmt.Errorf("failed to add supporter: %w", err)
		}
		m.touch()
		m.log("Supporter added", map[string]any{"person": person})
		return nil
	})
}

// Unsupport withdraws person's support
func (l *Lifecycle) Unsupport(ctx context.Context, documentID uint64, person string, expected *uint64, actor Actor) error {
	if person == "" {
		person = actor.ID
	}
	return l.mutate(ctx, "unsupport", documentID, expected, actor, func(m *mutation) error {
		if person != actor.ID && !m.manage() {
			return forbidden("withdraw support of others")
		}
		if !m.state.AllowSupport {
			return types.NewError(types.KindInvalidTransition, m.state.Name, "support is not possible in this state")
		}

		result := m.tx.Where("document_id = ? AND person_id = ?", documentID, person).Delete(&models.Supporter{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove supporter: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return types.NewError(types.KindNotSupporting, person, "not supporting")
		}
		m.touch()
		m.log("Supporter removed", map[string]any{"person": person})
		return nil
	})
}

// EnoughSupporters evaluates the quorum rule for a document
func (l *Lifecycle) EnoughSupporters(ctx context.Context, documentID uint64) (bool, error) {
	var doc models.Document
	if err := l.db.WithContext(ctx).First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, notFound("document", documentID)
		}
		return false, fmt.Errorf("failed to load document: %w", err)
	}
	state, err := l.graph.State(doc.StateID)
	if err != nil {
		return false, err
	}
	count, err := countSupporters(l.db.WithContext(ctx), documentID)
	if err != nil {
		return false, err
	}
	return EnoughSupporters(l.settings.Snapshot().MinSupporters, int(count), state), nil
}

// removeSupporters empties the supporter list with one audit entry per
// removed supporter
func removeSupporters(m *mutation, reason string) error {
	var supporters []models.Supporter
	if err := m.tx.Where("document_id = ?", m.doc.DocumentID).Order("supporter_id").Find(&supporters).Error; err != nil {
		return fmt.Errorf("failed to load supporters: %w", err)
	}
	if len(supporters) == 0 {
		return nil
	}
	if err := m.tx.Where("document_id = ?", m.doc.DocumentID).Delete(&models.Supporter{}).Error; err != nil {
		return fmt.Errorf("failed to remove supporters: %w", err)
	}
	for _, s := range supporters {
		m.log("Supporter removed", map[string]any{"person": s.PersonID, "reason": reason})
	}
	m.touch()
	return nil
}
