package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/testutil"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/localnerve/assemblydb/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(states []*models.State) []string {
	out := make([]string, 0, len(states))
	for _, st := range states {
		out = append(out, st.Name)
	}
	return out
}

func TestBuiltinSpecs(t *testing.T) {
	specs, err := workflow.BuiltinSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 3)
	assert.Equal(t, "Simple Workflow", specs[0].Name)
	assert.Equal(t, "Complex Workflow", specs[1].Name)
	assert.Equal(t, "Election Workflow", specs[2].Name)
	assert.Equal(t, models.KindAssignment, specs[2].Kind)
}

func TestParseSpecsRejectsBadGraphs(t *testing.T) {
	cases := map[string]string{
		"unknown edge": `
workflows:
  - name: Broken
    kind: motion
    first_state: a
    states:
      - name: a
        next_states: [b]
`,
		"duplicate state": `
workflows:
  - name: Broken
    kind: motion
    first_state: a
    states:
      - name: a
      - name: a
`,
		"missing first state": `
workflows:
  - name: Broken
    kind: motion
    first_state: z
    states:
      - name: a
`,
		"unknown kind": `
workflows:
  - name: Broken
    kind: petition
    first_state: a
    states:
      - name: a
`,
		"not yaml": `workflows: [`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := workflow.ParseSpecs([]byte(raw))
			assert.True(t, errors.Is(err, types.ErrConfiguration), "got %v", err)
		})
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	specs, err := workflow.BuiltinSpecs()
	require.NoError(t, err)

	created, err := workflow.Bootstrap(ctx, db, specs, nil)
	require.NoError(t, err)
	assert.Len(t, created, 3)

	created, err = workflow.Bootstrap(ctx, db, specs, nil)
	require.NoError(t, err)
	assert.Empty(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Workflow{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
	require.NoError(t, db.Model(&models.State{}).Count(&count).Error)
	assert.EqualValues(t, 4+10+3, count)
}

func TestSimpleWorkflowGraph(t *testing.T) {
	_, graph := testutil.OpenBootstrappedDB(t)

	wf, err := graph.WorkflowByName("Simple Workflow")
	require.NoError(t, err)

	first, err := graph.FirstState(wf.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", first.Name)
	assert.True(t, first.AllowSupport)
	assert.True(t, first.AllowCreatePoll)

	assert.Equal(t, []string{"accepted", "rejected", "not decided"}, names(graph.AllowedTransitions(first)))

	accepted, err := graph.StateByName(wf.WorkflowID, "accepted")
	require.NoError(t, err)
	assert.True(t, graph.IsTransitionAllowed(first, accepted))
	assert.False(t, graph.IsTransitionAllowed(accepted, accepted))
	assert.False(t, graph.IsTransitionAllowed(accepted, first))
	assert.Empty(t, graph.AllowedTransitions(accepted))

	assert.Equal(t, []string{"accepted", "rejected", "not decided"}, names(graph.Recommendations(wf.WorkflowID)))
}

func TestComplexWorkflowCycle(t *testing.T) {
	_, graph := testutil.OpenBootstrappedDB(t)

	wf, err := graph.WorkflowByName("Complex Workflow")
	require.NoError(t, err)

	published, err := graph.FirstState(wf.WorkflowID)
	require.NoError(t, err)
	assert.True(t, published.DontSetIdentifier)

	permitted, err := graph.StateByName(wf.WorkflowID, "permitted")
	require.NoError(t, err)
	review, err := graph.StateByName(wf.WorkflowID, "needs review")
	require.NoError(t, err)

	assert.True(t, permitted.RequiresNewVersion)
	assert.True(t, permitted.LeaveOldVersionActive)
	assert.Len(t, graph.AllowedTransitions(permitted), 7)
	assert.True(t, graph.IsTransitionAllowed(published, permitted))
	assert.True(t, graph.IsTransitionAllowed(permitted, review))
	assert.True(t, graph.IsTransitionAllowed(review, published))

	// same names in different workflows are different states
	simple, err := graph.WorkflowByName("Simple Workflow")
	require.NoError(t, err)
	simpleAccepted, err := graph.StateByName(simple.WorkflowID, "accepted")
	require.NoError(t, err)
	assert.False(t, graph.IsTransitionAllowed(permitted, simpleAccepted))
}

func TestElectionWorkflow(t *testing.T) {
	_, graph := testutil.OpenBootstrappedDB(t)

	wf, err := graph.WorkflowByName("Election Workflow")
	require.NoError(t, err)
	assert.Equal(t, models.KindAssignment, wf.Kind)

	first, err := graph.FirstState(wf.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, "searching for candidates", first.Name)
	assert.Equal(t, []string{"voting", "finished"}, names(graph.AllowedTransitions(first)))

	for _, st := range graph.States(wf.WorkflowID) {
		assert.True(t, st.DontSetIdentifier, st.Name)
	}
}

func TestLoadGraphRejectsCrossWorkflowEdges(t *testing.T) {
	db, graph := testutil.OpenBootstrappedDB(t)

	simple, err := graph.WorkflowByName("Simple Workflow")
	require.NoError(t, err)
	complexWf, err := graph.WorkflowByName("Complex Workflow")
	require.NoError(t, err)
	from, err := graph.StateByName(simple.WorkflowID, "accepted")
	require.NoError(t, err)
	to, err := graph.StateByName(complexWf.WorkflowID, "published")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.StateEdge{StateID: from.StateID, NextStateID: to.StateID}).Error)

	_, err = workflow.LoadGraph(context.Background(), db)
	assert.Equal(t, types.KindConfiguration, types.KindOf(err))
}

func TestGraphLookupsNotFound(t *testing.T) {
	_, graph := testutil.OpenBootstrappedDB(t)

	_, err := graph.Workflow(999)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	_, err = graph.State(999)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	_, err = graph.WorkflowByName("Nope")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.False(t, graph.IsTransitionAllowed(nil, nil))
}
