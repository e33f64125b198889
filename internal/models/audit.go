package models

import (
	"time"
)

// AuditEntry is one line of a document's history. Entries written by the
// same call share an OperationID. Entries outlive their document.
type AuditEntry struct {
	AuditEntryID uint64    `gorm:"primaryKey;autoIncrement" json:"audit_entry_id"`
	DocumentID   uint64    `gorm:"index;not null" json:"document_id"`
	Message      string    `gorm:"size:255;not null" json:"message"`
	ActorID      string    `gorm:"size:64" json:"actor_id"`
	OperationID  string    `gorm:"size:36;index" json:"operation_id"`
	Data         JSON      `json:"data"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConfigEntry is a persisted settings override
type ConfigEntry struct {
	Key       string    `gorm:"column:setting_key;primaryKey;size:64" json:"key"`
	Value     JSON      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdentifierSequence is the numbering counter of one scope. The row is
// locked while a number is handed out.
type IdentifierSequence struct {
	Scope      string `gorm:"primaryKey;size:128"`
	LastNumber int    `gorm:"not null;default:0"`
}

func (AuditEntry) TableName() string {
	return "audit_entries"
}

func (ConfigEntry) TableName() string {
	return "config_entries"
}

func (IdentifierSequence) TableName() string {
	return "identifier_sequences"
}

// All lists every model in migration order
func All() []any {
	return []any{
		&Workflow{},
		&State{},
		&Category{},
		&Document{},
		&Version{},
		&Submitter{},
		&Supporter{},
		&Candidate{},
		&Poll{},
		&Option{},
		&Vote{},
		&AuditEntry{},
		&ConfigEntry{},
		&IdentifierSequence{},
	}
}
