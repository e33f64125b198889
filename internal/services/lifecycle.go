// lifecycle.go
//
// A workflow and ballot engine for assembly motions and elections
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of assemblydb.
// assemblydb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// assemblydb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with assemblydb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/database"
	"github.com/localnerve/assemblydb/internal/metrics"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/localnerve/assemblydb/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Lifecycle manages documents as they move through their workflow: state,
// supporters, versions, submitters, candidates and identifiers. Every
// mutating call runs in one transaction holding the document row lock.
type Lifecycle struct {
	db       *gorm.DB
	graph    *workflow.Graph
	settings *Settings
	audit    AuditSink
	polls    *PollEngine
	logger   *slog.Logger
}

// NewLifecycle wires the manager. polls creates the ballots of documents
// whose state allows it.
func NewLifecycle(db *gorm.DB, graph *workflow.Graph, settings *Settings, audit AuditSink, polls *PollEngine, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		db:       db,
		graph:    graph,
		settings: settings,
		audit:    audit,
		polls:    polls,
		logger:   ResolveLogger(logger),
	}
}

// Graph returns the workflow graph the manager enforces
func (l *Lifecycle) Graph() *workflow.Graph {
	return l.graph
}

// MinSupporters returns the configured support quorum
func (l *Lifecycle) MinSupporters() int {
	return l.settings.Snapshot().MinSupporters
}

// mutation is the working set of one locked operation
type mutation struct {
	tx       *gorm.DB
	doc      *models.Document
	state    *models.State
	settings config.Assembly
	actor    Actor
	updates  map[string]any
	events   []AuditEvent
	commits  []func()
	dirty    bool
	deleted  bool
}

// set schedules a document column update
func (m *mutation) set(column string, value any) {
	m.updates[column] = value
	m.dirty = true
}

// touch marks a change to child rows, which still bumps the revision
func (m *mutation) touch() {
	m.dirty = true
}

func (m *mutation) log(message string, data map[string]any) {
	m.events = append(m.events, AuditEvent{
		DocumentID: m.doc.DocumentID,
		Message:    message,
		ActorID:    m.actor.ID,
		Data:       data,
	})
}

func (m *mutation) onCommit(fn func()) {
	m.commits = append(m.commits, fn)
}

func (m *mutation) manage() bool {
	return m.actor.CanManage(m.doc.Kind)
}

func (m *mutation) isSubmitter(person string) (bool, error) {
	var count int64
	err := m.tx.Model(&models.Submitter{}).
		Where("document_id = ? AND person_id = ?", m.doc.DocumentID, person).
		Count(&count).Error
	return count > 0, err
}

// mutate locks the document, checks the expected revision, runs fn and
// bumps the revision when fn changed anything. Audit events are handed to
// the sink only after commit.
func (l *Lifecycle) mutate(ctx context.Context, op string, documentID uint64, expected *uint64, actor Actor, fn func(m *mutation) error) error {
	operationID := uuid.NewString()
	var done *mutation

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("document_id = ?", documentID).
			First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("document", documentID)
			}
			return fmt.Errorf("failed to lock document: %w", err)
		}
		if expected != nil && *expected != doc.Revision {
			return types.NewError(types.KindConflict, doc.Revision, "E_VERSION")
		}

		state, err := l.graph.State(doc.StateID)
		if err != nil {
			return err
		}

		m := &mutation{
			tx:       tx,
			doc:      &doc,
			state:    state,
			settings: l.settings.Snapshot(),
			actor:    actor,
			updates:  map[string]any{},
		}
		if err := fn(m); err != nil {
			return err
		}
		done = m
		if !m.dirty || m.deleted {
			return nil
		}

		m.updates["revision"] = doc.Revision + 1
		result := tx.Model(&models.Document{}).
			Where("document_id = ? AND revision = ?", doc.DocumentID, doc.Revision).
			Updates(m.updates)
		if result.Error != nil {
			if database.IsDuplicateKey(result.Error) {
				return types.NewError(types.KindDuplicateIdentifier, m.updates["identifier"], "identifier already in use")
			}
			return fmt.Errorf("failed to update document: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return types.NewError(types.KindConflict, doc.Revision, "E_VERSION - Failed to update document due to concurrent modification")
		}
		doc.Revision++
		return nil
	})

	if err != nil {
		l.fail(op, documentID, actor, err)
		return err
	}

	for _, fn := range done.commits {
		fn()
	}
	l.audit.Record(ctx, operationID, done.events...)
	l.logger.Info("document operation completed",
		"event", "document_"+op+"_completed",
		"module", "lifecycle",
		"layer", "service",
		"document_id", documentID,
		"actor_id", actor.ID,
		"operation_id", operationID,
		"changed", done.dirty,
	)
	return nil
}

// fail logs and counts a rejected operation
func (l *Lifecycle) fail(op string, documentID uint64, actor Actor, err error) {
	metrics.ObserveError(op, err)
	if kind := types.KindOf(err); kind != "" {
		l.logger.Info("document operation rejected",
			"event", "document_"+op+"_rejected",
			"module", "lifecycle",
			"layer", "service",
			"document_id", documentID,
			"actor_id", actor.ID,
			"kind", string(kind),
			"error", err.Error(),
		)
		return
	}
	l.logger.Error("document operation failed",
		"event", "document_"+op+"_failed",
		"module", "lifecycle",
		"layer", "service",
		"document_id", documentID,
		"actor_id", actor.ID,
		"error", err.Error(),
	)
}

// CreateDocumentInput describes a new motion or assignment
type CreateDocumentInput struct {
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	Reason     string   `json:"reason"`
	WorkflowID *uint64  `json:"workflow_id,omitempty"`
	CategoryID *uint64  `json:"category_id,omitempty"`
	Submitters []string `json:"submitters,omitempty"`
	OpenPosts  int      `json:"open_posts"`
	Identifier *string  `json:"identifier,omitempty"`
}

// CreateDocument starts a document in the first state of its workflow with
// version 1. Submitters default to the actor.
func (l *Lifecycle) CreateDocument(ctx context.Context, in CreateDocumentInput, actor Actor) (*models.Document, error) {
	settings := l.settings.Snapshot()

	if in.Kind != models.KindMotion && in.Kind != models.KindAssignment {
		return nil, types.NewError(types.KindInvalidInput, in.Kind, "unknown document kind")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, types.NewError(types.KindInvalidInput, nil, "title is required")
	}
	if in.OpenPosts < 0 {
		return nil, types.NewError(types.KindInvalidInput, in.OpenPosts, "open posts must not be negative")
	}

	manage := actor.CanManage(in.Kind)
	if in.Kind == models.KindAssignment && !manage {
		return nil, forbidden("create assignments")
	}
	if in.Kind == models.KindMotion && !manage && !actor.CanParticipate(in.Kind) {
		return nil, forbidden("create motions")
	}
	if in.Identifier != nil && !manage {
		return nil, forbidden("set identifiers")
	}

	wf, err := l.resolveWorkflow(in.Kind, in.WorkflowID, settings)
	if err != nil {
		return nil, err
	}
	first, err := l.graph.FirstState(wf.WorkflowID)
	if err != nil {
		return nil, err
	}

	submitters := []string{actor.ID}
	if len(in.Submitters) > 0 {
		if !manage {
			return nil, forbidden("name other submitters")
		}
		submitters = dedupe(in.Submitters)
		if len(submitters) == 0 {
			return nil, types.NewError(types.KindInvalidInput, in.Submitters, "at least one submitter is required")
		}
	}

	operationID := uuid.NewString()
	var created models.Document
	var m *mutation

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CategoryID != nil {
			var cat models.Category
			if err := tx.First(&cat, *in.CategoryID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("category", *in.CategoryID)
				}
				return err
			}
		}

		created = models.Document{
			Kind:       in.Kind,
			WorkflowID: wf.WorkflowID,
			StateID:    first.StateID,
			CategoryID: in.CategoryID,
			OpenPosts:  in.OpenPosts,
		}
		if err := tx.Omit(clause.Associations).Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		m = &mutation{tx: tx, doc: &created, state: first, settings: settings, actor: actor, updates: map[string]any{}}
		m.log("Document created", map[string]any{"state": first.Name, "workflow": wf.Name})

		switch {
		case in.Identifier != nil:
			if err := l.assignIdentifier(m, in.Identifier); err != nil {
				return err
			}
		case !first.DontSetIdentifier && settings.IdentifierNumbering != config.NumberingManual:
			if err := l.assignIdentifier(m, nil); err != nil {
				return err
			}
		}
		if len(m.updates) > 0 {
			if err := tx.Model(&models.Document{}).
				Where("document_id = ?", created.DocumentID).
				Updates(m.updates).Error; err != nil {
				if database.IsDuplicateKey(err) {
					return types.NewError(types.KindDuplicateIdentifier, m.updates["identifier"], "identifier already in use")
				}
				return fmt.Errorf("failed to number document: %w", err)
			}
		}

		version := models.Version{
			DocumentID:    created.DocumentID,
			VersionNumber: 1,
			Title:         in.Title,
			Text:          in.Text,
			Reason:        in.Reason,
			Identifier:    created.Identifier,
			CreatedBy:     actor.ID,
		}
		if err := tx.Create(&version).Error; err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}

		for i, person := range submitters {
			sub := models.Submitter{DocumentID: created.DocumentID, PersonID: person, Weight: i + 1}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("failed to add submitter: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		l.fail("create", 0, actor, err)
		return nil, err
	}

	for _, fn := range m.commits {
		fn()
	}
	l.audit.Record(ctx, operationID, m.events...)
	l.logger.Info("document created",
		"event", "document_create_completed",
		"module", "lifecycle",
		"layer", "service",
		"document_id", created.DocumentID,
		"kind", created.Kind,
		"actor_id", actor.ID,
		"operation_id", operationID,
	)
	return l.GetDocument(ctx, created.DocumentID)
}

func (l *Lifecycle) resolveWorkflow(kind string, id *uint64, settings config.Assembly) (*models.Workflow, error) {
	if id != nil {
		wf, err := l.graph.Workflow(*id)
		if err != nil {
			return nil, err
		}
		if wf.Kind != kind {
			return nil, types.NewError(types.KindInvalidInput, wf.Name, "workflow is not a %s workflow", kind)
		}
		return wf, nil
	}

	name := settings.Workflow(kind)
	wf, err := l.graph.WorkflowByName(name)
	if err != nil || wf.Kind != kind {
		return nil, types.NewError(types.KindConfiguration, name, "default %s workflow is not installed", kind)
	}
	return wf, nil
}

// GetDocument loads a document with all of its children
func (l *Lifecycle) GetDocument(ctx context.Context, id uint64) (*models.Document, error) {
	var doc models.Document
	err := l.db.WithContext(ctx).
		Session(&gorm.Session{Logger: l.db.Logger.LogMode(logger.Silent)}).
		Preload("State").
		Preload("Recommendation").
		Preload("Category").
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version_number") }).
		Preload("Submitters", func(db *gorm.DB) *gorm.DB { return db.Order("weight") }).
		Preload("Supporters", func(db *gorm.DB) *gorm.DB { return db.Order("supporter_id") }).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB { return db.Order("weight") }).
		Preload("Polls", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("document", id)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns the documents of a kind, or of every kind when kind
// is empty
func (l *Lifecycle) ListDocuments(ctx context.Context, kind string) ([]models.Document, error) {
	query := l.db.WithContext(ctx).
		Session(&gorm.Session{Logger: l.db.Logger.LogMode(logger.Silent)}).
		Preload("State").
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version_number") }).
		Order("document_id")
	if kind != "" {
		if kind != models.KindMotion && kind != models.KindAssignment {
			return nil, types.NewError(types.KindInvalidInput, kind, "unknown document kind")
		}
		query = query.Where("kind = ?", kind)
	}

	var docs []models.Document
	if err := query.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and everything it owns. Managers may
// delete any document, submitters only while it is in its first state.
func (l *Lifecycle) DeleteDocument(ctx context.Context, id uint64, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "delete", id, expected, actor, func(m *mutation) error {
		if !m.manage() {
			submitter, err := m.isSubmitter(actor.ID)
			if err != nil {
				return err
			}
			first, err := l.graph.FirstState(m.doc.WorkflowID)
			if err != nil {
				return err
			}
			if !submitter || m.doc.StateID != first.StateID {
				return forbidden("delete this document")
			}
		}

		var pollIDs []uint64
		if err := m.tx.Model(&models.Poll{}).Where("document_id = ?", id).Pluck("poll_id", &pollIDs).Error; err != nil {
			return fmt.Errorf("failed to list polls: %w", err)
		}
		if err := deletePolls(m.tx, pollIDs); err != nil {
			return err
		}
		for _, child := range []any{&models.Version{}, &models.Submitter{}, &models.Supporter{}, &models.Candidate{}} {
			if err := m.tx.Where("document_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("failed to delete document children: %w", err)
			}
		}
		if err := m.tx.Delete(&models.Document{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}

		m.deleted = true
		m.touch()
		m.log("Document deleted", nil)
		return nil
	})
}

// AuditLog returns the history of a document to managers
func (l *Lifecycle) AuditLog(ctx context.Context, id uint64, actor Actor) ([]models.AuditEntry, error) {
	doc, err := l.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(doc.Kind) {
		return nil, forbidden("read the audit log")
	}
	return AuditLog(ctx, l.db, id)
}

// CreateCategory adds a numbering category
func (l *Lifecycle) CreateCategory(ctx context.Context, name, prefix string, actor Actor) (*models.Category, error) {
	if !actor.CanManage(models.KindMotion) {
		return nil, forbidden("create categories")
	}
	if strings.TrimSpace(name) == "" {
		return nil, types.NewError(types.KindInvalidInput, nil, "category name is required")
	}

	cat := models.Category{Name: strings.TrimSpace(name), Prefix: strings.TrimSpace(prefix)}
	if err := l.db.WithContext(ctx).Create(&cat).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, types.NewError(types.KindInvalidInput, cat.Name, "category already exists")
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &cat, nil
}

// ListCategories returns all categories by name
func (l *Lifecycle) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := l.db.WithContext(ctx).Order("name").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return cats, nil
}

func notFound(what string, id any) error {
	return types.NewError(types.KindNotFound, id, "%s not found", what)
}

func forbidden(action string) error {
	return types.NewError(types.KindForbidden, nil, "not allowed to %s", action)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
