package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"gorm.io/gorm"
)

// VersionInput is the text of a document version
type VersionInput struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func loadVersions(tx *gorm.DB, documentID uint64) ([]models.Version, error) {
	var versions []models.Version
	if err := tx.Where("document_id = ?", documentID).Order("version_number").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("failed to load versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, types.NewError(types.KindConfiguration, documentID, "document has no versions")
	}
	return versions, nil
}

// CreateVersion records an edit. Identical content is a no-op returning the
// active version. Changed content is appended as a new version when the
// state requires one or the active version is pinned, otherwise the latest
// version is updated in place.
func (l *Lifecycle) CreateVersion(ctx context.Context, documentID uint64, in VersionInput, expected *uint64, actor Actor) (*models.Version, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, types.NewError(types.KindInvalidInput, nil, "title is required")
	}

	var result models.Version
	err := l.mutate(ctx, "create_version", documentID, expected, actor, func(m *mutation) error {
		manage := m.manage()
		if !manage {
			submitter, err := m.isSubmitter(actor.ID)
			if err != nil {
				return err
			}
			if !submitter {
				return forbidden("edit this document")
			}
			if !m.state.AllowSubmitterEdit {
				return types.NewError(types.KindInvalidTransition, m.state.Name, "submitters cannot edit in this state")
			}
		}

		versions, err := loadVersions(m.tx, documentID)
		if err != nil {
			return err
		}
		latest := versions[len(versions)-1]
		active := *models.ActiveVersion(m.doc.ActiveVersionID, versions)

		if active.SameContent(in.Title, in.Text, in.Reason) {
			result = active
			return nil
		}

		if m.state.RequiresNewVersion || m.doc.ActiveVersionID != nil {
			result = models.Version{
				DocumentID:    documentID,
				VersionNumber: latest.VersionNumber + 1,
				Title:         in.Title,
				Text:          in.Text,
				Reason:        in.Reason,
				Identifier:    m.doc.Identifier,
				CreatedBy:     actor.ID,
			}
			if err := m.tx.Create(&result).Error; err != nil {
				return fmt.Errorf("failed to create version: %w", err)
			}

			if m.state.LeaveOldVersionActive {
				if m.doc.ActiveVersionID == nil {
					m.set("active_version_id", active.VersionID)
				}
			} else if m.doc.ActiveVersionID != nil {
				m.set("active_version_id", nil)
			}
			m.touch()
			m.log("Version created", map[string]any{"version": result.VersionNumber})
		} else {
			err := m.tx.Model(&latest).Updates(map[string]any{
				"title":  in.Title,
				"text":   in.Text,
				"reason": in.Reason,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to update version: %w", err)
			}
			latest.Title, latest.Text, latest.Reason = in.Title, in.Text, in.Reason
			result = latest
			m.touch()
			m.log("Version updated", map[string]any{"version": latest.VersionNumber})
		}

		if m.settings.RemoveSupportersOnEdit && !manage {
			return removeSupporters(m, "edit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func findVersion(tx *gorm.DB, documentID uint64, number int) (*models.Version, error) {
	var v models.Version
	err := tx.Where("document_id = ? AND version_number = ?", documentID, number).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("version", number)
		}
		return nil, fmt.Errorf("failed to load version: %w", err)
	}
	return &v, nil
}

// PermitVersion pins version number as the active version
func (l *Lifecycle) PermitVersion(ctx context.Context, documentID uint64, number int, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "permit_version", documentID, expected, actor, func(m *mutation) error {
		if !m.manage() {
			return forbidden("permit versions")
		}
		v, err := findVersion(m.tx, documentID, number)
		if err != nil {
			return err
		}
		if v.Rejected {
			if err := m.tx.Model(v).Update("rejected", false).Error; err != nil {
				return fmt.Errorf("failed to update version: %w", err)
			}
		}
		m.set("active_version_id", v.VersionID)
		m.log("Version permitted", map[string]any{"version": v.VersionNumber})
		return nil
	})
}

// RejectVersion marks a version rejected. The active version cannot be
// rejected.
func (l *Lifecycle) RejectVersion(ctx context.Context, documentID uint64, number int, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "reject_version", documentID, expected, actor, func(m *mutation) error {
		if !m.manage() {
			return forbidden("reject versions")
		}
		versions, err := loadVersions(m.tx, documentID)
		if err != nil {
			return err
		}
		v, err := findVersion(m.tx, documentID, number)
		if err != nil {
			return err
		}
		if models.ActiveVersion(m.doc.ActiveVersionID, versions).VersionID == v.VersionID {
			return types.NewError(types.KindInvalidInput, number, "the active version cannot be rejected")
		}
		if v.Rejected {
			return nil
		}
		if err := m.tx.Model(v).Update("rejected", true).Error; err != nil {
			return fmt.Errorf("failed to update version: %w", err)
		}
		m.touch()
		m.log("Version rejected", map[string]any{"version": v.VersionNumber})
		return nil
	})
}
