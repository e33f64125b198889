package database_test

import (
	"strings"
	"testing"

	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func tableSQL(t *testing.T, db *gorm.DB, table string) string {
	t.Helper()
	var ddl string
	require.NoError(t, db.Raw("SELECT sql FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&ddl).Error)
	require.NotEmpty(t, ddl, table)
	return strings.NewReplacer("`", "", `"`, "").Replace(ddl)
}

// Documents point at their state and category, never the other way round
func TestDocumentForeignKeys(t *testing.T) {
	db := testutil.OpenDB(t)

	documents := tableSQL(t, db, "documents")
	assert.Contains(t, documents, "REFERENCES states(state_id)")
	assert.Contains(t, documents, "REFERENCES categories(category_id)")
	assert.NotContains(t, tableSQL(t, db, "states"), "REFERENCES documents")
	assert.NotContains(t, tableSQL(t, db, "categories"), "REFERENCES documents")

	wf := models.Workflow{Name: "Plain", Kind: models.KindMotion}
	require.NoError(t, db.Create(&wf).Error)
	state := models.State{WorkflowID: wf.WorkflowID, Name: "open"}
	require.NoError(t, db.Create(&state).Error)
	category := models.Category{Name: "Finance", Prefix: "F"}
	require.NoError(t, db.Create(&category).Error)

	doc := models.Document{
		Kind:       models.KindMotion,
		WorkflowID: wf.WorkflowID,
		StateID:    state.StateID,
		CategoryID: &category.CategoryID,
	}
	require.NoError(t, db.Create(&doc).Error)

	var loaded models.Document
	require.NoError(t, db.Preload("State").Preload("Category").First(&loaded, doc.DocumentID).Error)
	assert.Equal(t, "open", loaded.State.Name)
	require.NotNil(t, loaded.Category)
	assert.Equal(t, "Finance", loaded.Category.Name)

	orphan := models.Document{Kind: models.KindMotion, WorkflowID: wf.WorkflowID, StateID: state.StateID + 1000}
	assert.Error(t, db.Create(&orphan).Error)
}
