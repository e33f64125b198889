// Package testutil provides the databases and containers package tests run
// against.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/localnerve/assemblydb/internal/database"
	"github.com/localnerve/assemblydb/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB creates a private in-memory SQLite database with the schema
// migrated. It is closed when the test ends.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying SQL DB: %v", err)
	}
	// a single connection keeps the shared memory database alive and
	// serializes writers the way SQLite expects
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// OpenBootstrappedDB is OpenDB with the built-in workflows installed, and
// the graph loaded from it
func OpenBootstrappedDB(t testing.TB) (*gorm.DB, *workflow.Graph) {
	t.Helper()

	db := OpenDB(t)
	specs, err := workflow.BuiltinSpecs()
	if err != nil {
		t.Fatalf("Failed to parse built-in workflows: %v", err)
	}
	if _, err := workflow.Bootstrap(context.Background(), db, specs, nil); err != nil {
		t.Fatalf("Failed to bootstrap workflows: %v", err)
	}
	graph, err := workflow.LoadGraph(context.Background(), db)
	if err != nil {
		t.Fatalf("Failed to load workflow graph: %v", err)
	}
	return db, graph
}
