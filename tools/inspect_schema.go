package main

import (
	"context"
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/assemblydb/internal/database"
	"github.com/localnerve/assemblydb/internal/workflow"
	"gorm.io/gorm"
)

// Prints the schema AutoMigrate creates, with the built-in workflows
// installed, against an in-memory SQLite database.
func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name").Scan(&tables)

	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var schema string
		db.Raw("SELECT sql FROM sqlite_master WHERE name = ?", table).Scan(&schema)
		fmt.Println(schema)

		var indexes []string
		db.Raw("SELECT sql FROM sqlite_master WHERE type='index' AND tbl_name = ? AND sql IS NOT NULL", table).Scan(&indexes)
		for _, idx := range indexes {
			fmt.Println(idx)
		}
	}

	specs, err := workflow.BuiltinSpecs()
	if err != nil {
		log.Fatal(err)
	}
	installed, err := workflow.Bootstrap(context.Background(), db, specs, nil)
	if err != nil {
		log.Fatal(err)
	}
	graph, err := workflow.LoadGraph(context.Background(), db)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\n=== Workflows (%d installed) ===\n", len(installed))
	for _, wf := range graph.Workflows() {
		fmt.Printf("%s (%s): %d states\n", wf.Name, wf.Kind, len(graph.States(wf.WorkflowID)))
	}
}
