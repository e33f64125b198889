package database_test

import (
	"context"
	"os"
	"testing"

	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/database"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/services"
	"github.com/localnerve/assemblydb/internal/testutil"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/localnerve/assemblydb/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMariaDB runs migrations, workflow bootstrap and a document lifecycle
// against a real MariaDB through both accounts.
func TestMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv("ASSEMBLYDB_CONTAINER_TESTS") == "" {
		t.Skip("set ASSEMBLYDB_CONTAINER_TESTS to run against MariaDB")
	}

	ctx := context.Background()
	containers, err := testutil.StartDatabase(ctx, t)
	t.Cleanup(func() { containers.Terminate(t) })
	require.NoError(t, err)

	cfg := &config.Config{
		LogLevel:             "silent",
		DBType:               "mariadb",
		DBHost:               containers.DBHost,
		DBPort:               containers.DBPort,
		DBDatabase:           "assembly",
		DBAppUser:            "assembly_app",
		DBAppPassword:        "app",
		DBAppConnectionLimit: 4,
		DBUser:               "assembly_admin",
		DBPassword:           "admin",
		DBConnectionLimit:    2,
		Assembly:             config.DefaultAssembly(),
	}

	admin, err := database.ConnectAdmin(cfg)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(admin))

	specs, err := workflow.BuiltinSpecs()
	require.NoError(t, err)
	installed, err := workflow.Bootstrap(ctx, admin, specs, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, installed)

	// a second bootstrap installs nothing
	again, err := workflow.Bootstrap(ctx, admin, specs, nil)
	require.NoError(t, err)
	assert.Empty(t, again)
	require.NoError(t, database.Close(admin))

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	graph, err := workflow.LoadGraph(ctx, db)
	require.NoError(t, err)

	settings, err := services.NewSettings(ctx, db, cfg.Assembly, nil)
	require.NoError(t, err)
	audit := &services.DBAuditSink{DB: db}
	polls := services.NewPollEngine(db, settings, audit, nil)
	lifecycle := services.NewLifecycle(db, graph, settings, audit, polls, nil)

	manager := services.NewActor("admin", "admin")
	doc, err := lifecycle.CreateDocument(ctx, services.CreateDocumentInput{
		Kind:  models.KindMotion,
		Title: "Budget",
		Text:  "Adopt the budget",
	}, manager)
	require.NoError(t, err)

	require.NoError(t, lifecycle.AssignIdentifier(ctx, doc.DocumentID, nil, nil, manager))

	doc, err = lifecycle.GetDocument(ctx, doc.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc.Identifier)

	stale := doc.Revision
	require.NoError(t, lifecycle.SetState(ctx, doc.DocumentID, services.StateRef{Name: "accepted"}, &stale, manager))

	err = lifecycle.SetState(ctx, doc.DocumentID, services.StateRef{Name: "rejected"}, &stale, manager)
	assert.Equal(t, types.KindConflict, types.KindOf(err))

	entries, err := lifecycle.AuditLog(ctx, doc.DocumentID, manager)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 3)
}
