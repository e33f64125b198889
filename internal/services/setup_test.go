package services

import (
	"context"
	"sync"
	"testing"

	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/testutil"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/localnerve/assemblydb/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	admin = NewActor("admin", "admin")
	alice = NewActor("alice", "user")
	bob   = NewActor("bob", "user")
	carol = NewActor("carol", "user")
	dave  = NewActor("dave", "user")
)

type engine struct {
	db        *gorm.DB
	graph     *workflow.Graph
	settings  *Settings
	lifecycle *Lifecycle
	polls     *PollEngine
	audit     *recordingSink
}

// recordingSink keeps events in memory and forwards them to the database
type recordingSink struct {
	mu     sync.Mutex
	next   AuditSink
	events []AuditEvent
}

func (s *recordingSink) Record(ctx context.Context, operationID string, events ...AuditEvent) {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
	s.next.Record(ctx, operationID, events...)
}

func (s *recordingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Message)
	}
	return out
}

func newEngine(t *testing.T, mutate ...func(*config.Assembly)) *engine {
	t.Helper()

	db, graph := testutil.OpenBootstrappedDB(t)
	defaults := config.DefaultAssembly()
	for _, fn := range mutate {
		fn(&defaults)
	}
	require.NoError(t, defaults.Validate())

	settings, err := NewSettings(context.Background(), db, defaults, nil)
	require.NoError(t, err)

	sink := &recordingSink{next: &DBAuditSink{DB: db}}
	polls := NewPollEngine(db, settings, sink, nil)
	return &engine{
		db:        db,
		graph:     graph,
		settings:  settings,
		lifecycle: NewLifecycle(db, graph, settings, sink, polls, nil),
		polls:     polls,
		audit:     sink,
	}
}

func (e *engine) workflowID(t *testing.T, name string) *uint64 {
	t.Helper()
	wf, err := e.graph.WorkflowByName(name)
	require.NoError(t, err)
	return &wf.WorkflowID
}

func (e *engine) motion(t *testing.T, actor Actor, mutate ...func(*CreateDocumentInput)) *models.Document {
	t.Helper()
	in := CreateDocumentInput{Kind: models.KindMotion, Title: "Motion", Text: "Text", Reason: "Reason"}
	for _, fn := range mutate {
		fn(&in)
	}
	doc, err := e.lifecycle.CreateDocument(context.Background(), in, actor)
	require.NoError(t, err)
	return doc
}

func (e *engine) assignment(t *testing.T, openPosts int) *models.Document {
	t.Helper()
	doc, err := e.lifecycle.CreateDocument(context.Background(), CreateDocumentInput{
		Kind:      models.KindAssignment,
		Title:     "Board",
		OpenPosts: openPosts,
	}, admin)
	require.NoError(t, err)
	return doc
}

func (e *engine) reload(t *testing.T, id uint64) *models.Document {
	t.Helper()
	doc, err := e.lifecycle.GetDocument(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func (e *engine) stateName(t *testing.T, id uint64) string {
	t.Helper()
	return e.reload(t, id).State.Name
}

func assertKind(t *testing.T, err error, kind types.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, types.KindOf(err), "unexpected error: %v", err)
}

func ptr[T any](v T) *T {
	return &v
}
