package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/metrics"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// AssignIdentifier gives the document an identifier. explicit is taken as
// is in any numbering mode; without it the configured mode numbers the
// document.
func (l *Lifecycle) AssignIdentifier(ctx context.Context, documentID uint64, explicit *string, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "assign_identifier", documentID, expected, actor, func(m *mutation) error {
		if !m.manage() {
			return forbidden("set identifiers")
		}
		return l.assignIdentifier(m, explicit)
	})
}

func (l *Lifecycle) assignIdentifier(m *mutation, explicit *string) error {
	if m.doc.Identifier != nil {
		return types.NewError(types.KindAlreadyAssigned, *m.doc.Identifier, "identifier already assigned")
	}

	if explicit != nil {
		value := strings.TrimSpace(*explicit)
		if value == "" {
			return types.NewError(types.KindInvalidInput, nil, "identifier must not be blank")
		}
		taken, err := identifierTaken(m.tx, value, m.doc.DocumentID)
		if err != nil {
			return err
		}
		if taken {
			return types.NewError(types.KindDuplicateIdentifier, value, "identifier already in use")
		}
		applyIdentifier(m, value, 0, config.NumberingManual)
		return nil
	}

	mode := m.settings.IdentifierNumbering
	var scope, prefix string
	switch mode {
	case config.NumberingManual:
		return types.NewError(types.KindInvalidInput, nil, "manual numbering requires an identifier")
	case config.NumberingSerial:
		// one sequence shared by every kind
		scope = "serial"
	case config.NumberingPerCategory:
		if m.doc.CategoryID == nil {
			scope = "uncategorized:" + m.doc.Kind
			break
		}
		var cat models.Category
		if err := m.tx.First(&cat, *m.doc.CategoryID).Error; err != nil {
			return fmt.Errorf("failed to load category: %w", err)
		}
		scope = fmt.Sprintf("category:%d", cat.CategoryID)
		prefix = cat.Prefix
	default:
		return types.NewError(types.KindConfiguration, mode, "unknown identifier numbering")
	}

	format := func(n int) string {
		return FormatIdentifier(prefix, m.settings.IdentifierWithBlank, m.settings.IdentifierMinDigits, n)
	}
	number, value, err := nextIdentifier(m.tx, scope, m.doc.DocumentID, format)
	if err != nil {
		return err
	}
	applyIdentifier(m, value, number, mode)
	return nil
}

func applyIdentifier(m *mutation, value string, number int, mode string) {
	m.set("identifier", value)
	m.set("identifier_number", number)
	m.doc.Identifier = &value
	m.doc.IdentifierNumber = number
	m.log("Identifier set", map[string]any{"identifier": value})
	m.onCommit(func() { metrics.IdentifierAssigned(mode) })
}

// FormatIdentifier renders prefix and zero padded number, optionally
// separated by a blank
func FormatIdentifier(prefix string, blank bool, minDigits, number int) string {
	digits := fmt.Sprintf("%0*d", minDigits, number)
	switch {
	case prefix == "":
		return digits
	case blank:
		return prefix + " " + digits
	}
	return prefix + digits
}

// nextIdentifier takes the next free number of scope while holding the
// scope's sequence row lock. Numbers whose identifier is already in use,
// for example set by hand, are skipped.
func nextIdentifier(tx *gorm.DB, scope string, documentID uint64, format func(int) string) (int, string, error) {
	seq := models.IdentifierSequence{Scope: scope}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
		return 0, "", fmt.Errorf("failed to create identifier sequence: %w", err)
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope = ?", scope).
		First(&seq).Error; err != nil {
		return 0, "", fmt.Errorf("failed to lock identifier sequence: %w", err)
	}

	number := seq.LastNumber
	var value string
	for {
		number++
		value = format(number)
		taken, err := identifierTaken(tx, value, documentID)
		if err != nil {
			return 0, "", err
		}
		if !taken {
			break
		}
	}

	if err := tx.Model(&models.IdentifierSequence{}).
		Where("scope = ?", scope).
		Update("last_number", number).Error; err != nil {
		return 0, "", fmt.Errorf("failed to advance identifier sequence: %w", err)
	}
	return number, value, nil
}

func identifierTaken(tx *gorm.DB, value string, documentID uint64) (bool, error) {
	var count int64
	err := tx.Clauses(hints.Comment("select", "identifier_lookup")).
		Model(&models.Document{}).
		Where("identifier = ? AND document_id <> ?", value, documentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check identifier: %w", err)
	}
	return count > 0, nil
}
