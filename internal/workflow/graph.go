// Package workflow holds the state graphs documents move through. Graphs
// may be cyclic, so states live in an arena keyed by id and edges are
// adjacency lists of ids.
package workflow

import (
	"sort"

	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
)

// Graph is the in-memory, read-only view of all installed workflows.
// Returned pointers are shared and must not be modified.
type Graph struct {
	workflows map[uint64]*models.Workflow
	order     []uint64
	states    map[uint64]*models.State
	byFlow    map[uint64][]uint64
	next      map[uint64][]uint64
}

// NewGraph builds the arena from workflows with their states and edges
// loaded. It fails with ConfigurationError when an edge leaves its workflow
// or a workflow's first state is missing.
func NewGraph(workflows []models.Workflow) (*Graph, error) {
	g := &Graph{
		workflows: make(map[uint64]*models.Workflow, len(workflows)),
		states:    make(map[uint64]*models.State),
		byFlow:    make(map[uint64][]uint64, len(workflows)),
		next:      make(map[uint64][]uint64),
	}

	for i := range workflows {
		wf := workflows[i]
		states := wf.States
		wf.States = nil
		g.workflows[wf.WorkflowID] = &wf
		g.order = append(g.order, wf.WorkflowID)

		for j := range states {
			st := states[j]
			if st.WorkflowID != wf.WorkflowID {
				return nil, types.NewError(types.KindConfiguration, st.Name, "state listed under workflow %q belongs elsewhere", wf.Name)
			}
			ids := make([]uint64, 0, len(st.NextStates))
			for _, n := range st.NextStates {
				if n.WorkflowID != wf.WorkflowID {
					return nil, types.NewError(types.KindConfiguration, n.Name,
						"state %q of workflow %q points to a state of another workflow", st.Name, wf.Name)
				}
				ids = append(ids, n.StateID)
			}
			sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
			st.NextStates = nil
			g.states[st.StateID] = &st
			g.next[st.StateID] = ids
			g.byFlow[wf.WorkflowID] = append(g.byFlow[wf.WorkflowID], st.StateID)
		}
		sort.Slice(g.byFlow[wf.WorkflowID], func(a, b int) bool {
			ids := g.byFlow[wf.WorkflowID]
			return ids[a] < ids[b]
		})

		if wf.FirstStateID == nil {
			return nil, types.NewError(types.KindConfiguration, wf.Name, "workflow has no first state")
		}
		first, ok := g.states[*wf.FirstStateID]
		if !ok || first.WorkflowID != wf.WorkflowID {
			return nil, types.NewError(types.KindConfiguration, wf.Name, "workflow first state is not one of its states")
		}
	}

	sort.Slice(g.order, func(a, b int) bool { return g.order[a] < g.order[b] })
	return g, nil
}

// Workflows returns all workflows in installation order
func (g *Graph) Workflows() []*models.Workflow {
	out := make([]*models.Workflow, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.workflows[id])
	}
	return out
}

// Workflow looks up a workflow by id
func (g *Graph) Workflow(id uint64) (*models.Workflow, error) {
	wf, ok := g.workflows[id]
	if !ok {
		return nil, types.NewError(types.KindNotFound, id, "workflow not found")
	}
	return wf, nil
}

// WorkflowByName looks up a workflow by its unique name
func (g *Graph) WorkflowByName(name string) (*models.Workflow, error) {
	for _, id := range g.order {
		if g.workflows[id].Name == name {
			return g.workflows[id], nil
		}
	}
	return nil, types.NewError(types.KindNotFound, name, "workflow not found")
}

// State looks up a state by id
func (g *Graph) State(id uint64) (*models.State, error) {
	st, ok := g.states[id]
	if !ok {
		return nil, types.NewError(types.KindNotFound, id, "state not found")
	}
	return st, nil
}

// StateByName finds a state of a workflow by name
func (g *Graph) StateByName(workflowID uint64, name string) (*models.State, error) {
	for _, id := range g.byFlow[workflowID] {
		if g.states[id].Name == name {
			return g.states[id], nil
		}
	}
	return nil, types.NewError(types.KindNotFound, name, "state not found")
}

// States returns the states of a workflow in declaration order
func (g *Graph) States(workflowID uint64) []*models.State {
	ids := g.byFlow[workflowID]
	out := make([]*models.State, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.states[id])
	}
	return out
}

// FirstState is the state new documents of the workflow start in
func (g *Graph) FirstState(workflowID uint64) (*models.State, error) {
	wf, err := g.Workflow(workflowID)
	if err != nil {
		return nil, err
	}
	return g.State(*wf.FirstStateID)
}

// IsTransitionAllowed reports whether to is a next state of from
func (g *Graph) IsTransitionAllowed(from, to *models.State) bool {
	if from == nil || to == nil {
		return false
	}
	for _, id := range g.next[from.StateID] {
		if id == to.StateID {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the next states of from in declaration order
func (g *Graph) AllowedTransitions(from *models.State) []*models.State {
	if from == nil {
		return nil
	}
	ids := g.next[from.StateID]
	out := make([]*models.State, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.states[id])
	}
	return out
}

// Recommendations returns the states of a workflow that may be recommended
func (g *Graph) Recommendations(workflowID uint64) []*models.State {
	var out []*models.State
	for _, st := range g.States(workflowID) {
		if st.RecommendationLabel != "" {
			out = append(out, st)
		}
	}
	return out
}
