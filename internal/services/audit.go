package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/localnerve/assemblydb/internal/models"
	"gorm.io/gorm"
)

// AuditEvent is one history line produced by an operation
type AuditEvent struct {
	DocumentID uint64
	Message    string
	ActorID    string
	Data       map[string]any
}

// AuditSink receives the history of committed operations. Implementations
// must not fail the caller: errors are theirs to log.
type AuditSink interface {
	Record(ctx context.Context, operationID string, events ...AuditEvent)
}

// DBAuditSink stores events in the audit_entries table
type DBAuditSink struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Record writes the events in one insert. Failures are logged and dropped.
func (s *DBAuditSink) Record(ctx context.Context, operationID string, events ...AuditEvent) {
	if len(events) == 0 {
		return
	}
	logger := ResolveLogger(s.Logger)

	entries := make([]models.AuditEntry, 0, len(events))
	for _, ev := range events {
		entry := models.AuditEntry{
			DocumentID:  ev.DocumentID,
			Message:     ev.Message,
			ActorID:     ev.ActorID,
			OperationID: operationID,
		}
		if ev.Data != nil {
			data, err := models.NewJSON(ev.Data)
			if err != nil {
				logger.Warn("audit payload dropped",
					"event", "audit_payload_encode_failed",
					"module", "audit",
					"layer", "service",
					"document_id", ev.DocumentID,
					"error", err.Error(),
				)
			} else {
				entry.Data = data
			}
		}
		entries = append(entries, entry)
	}

	if err := s.DB.WithContext(ctx).Create(&entries).Error; err != nil {
		logger.Error("audit write failed",
			"event", "audit_write_failed",
			"module", "audit",
			"layer", "service",
			"operation_id", operationID,
			"entries", len(entries),
			"error", err.Error(),
		)
	}
}

// AuditLog returns the history of a document, oldest first
func AuditLog(ctx context.Context, db *gorm.DB, documentID uint64) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("audit_entry_id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}
	return entries, nil
}
