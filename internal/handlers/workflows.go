package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/utils"
	"github.com/localnerve/assemblydb/internal/workflow"
)

// WorkflowHandler serves the installed workflow graphs
type WorkflowHandler struct {
	Graph *workflow.Graph
}

// StateView is a state with its outgoing edges flattened to ids
type StateView struct {
	models.State
	NextStates []uint64 `json:"next_states"`
}

// WorkflowView is a workflow with its states in declaration order
type WorkflowView struct {
	WorkflowID   uint64      `json:"workflow_id"`
	Name         string      `json:"name"`
	Kind         string      `json:"kind"`
	FirstStateID *uint64     `json:"first_state_id"`
	States       []StateView `json:"states"`
}

func (h *WorkflowHandler) view(wf *models.Workflow) WorkflowView {
	out := WorkflowView{
		WorkflowID:   wf.WorkflowID,
		Name:         wf.Name,
		Kind:         wf.Kind,
		FirstStateID: wf.FirstStateID,
	}
	for _, st := range h.Graph.States(wf.WorkflowID) {
		sv := StateView{State: *st, NextStates: []uint64{}}
		sv.State.NextStates = nil
		for _, next := range h.Graph.AllowedTransitions(st) {
			sv.NextStates = append(sv.NextStates, next.StateID)
		}
		out.States = append(out.States, sv)
	}
	return out
}

// ListWorkflows handles GET /api/workflows
// @Summary List workflows
// @Description All installed workflows with their states and edges
// @Tags Workflows
// @Produce json
// @Success 200 {array} WorkflowView
// @Security CookieAuth
// @Router /workflows [get]
func (h *WorkflowHandler) ListWorkflows(c *fiber.Ctx) error {
	workflows := h.Graph.Workflows()
	out := make([]WorkflowView, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, h.view(wf))
	}
	return c.JSON(out)
}

// GetWorkflow handles GET /api/workflows/:id
// @Summary Get a workflow
// @Tags Workflows
// @Produce json
// @Param id path int true "Workflow ID"
// @Success 200 {object} WorkflowView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /workflows/{id} [get]
func (h *WorkflowHandler) GetWorkflow(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "getWorkflow")
	}
	wf, err := h.Graph.Workflow(id)
	if err != nil {
		return utils.CoreErrorResponse(c, err, "getWorkflow")
	}
	return c.JSON(h.view(wf))
}
