package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/middleware"
	"github.com/localnerve/assemblydb/internal/services"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/localnerve/assemblydb/internal/utils"
)

// StateRequest names a target state by id or by name
type StateRequest struct {
	RevisionGuard
	StateID types.FlexUint64 `json:"state_id"`
	Name    string           `json:"name"`
}

func (r StateRequest) ref() services.StateRef {
	return services.StateRef{ID: r.StateID.Uint64(), Name: r.Name}
}

// IdentifierRequest is the body of POST /documents/{id}/identifier. Without
// an identifier the configured numbering applies.
type IdentifierRequest struct {
	RevisionGuard
	Identifier *string `json:"identifier"`
}

// PersonRequest names the person acted for; the actor when empty
type PersonRequest struct {
	RevisionGuard
	Person string `json:"person"`
}

// ElectedRequest is the body of POST /documents/{id}/candidates/{person}/elected
type ElectedRequest struct {
	RevisionGuard
	Elected bool `json:"elected"`
}

// SetState handles POST /api/documents/:id/state
// @Summary Change state
// @Description Move a document to another state of its workflow
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body StateRequest true "Target state"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/state [post]
func (h *DocumentHandler) SetState(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "setState")
	}
	var body StateRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "setState")
	}
	if err := h.Lifecycle.SetState(c.UserContext(), id, body.ref(), body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "setState")
	}
	return h.respondMutation(c, id, "setState")
}

// Reset handles POST /api/documents/:id/reset
// @Summary Reset state
// @Description Put a document back into the first state of its workflow
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body RevisionGuard false "Revision check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/reset [post]
func (h *DocumentHandler) Reset(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "reset")
	}
	var body RevisionGuard
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "reset")
	}
	if err := h.Lifecycle.Reset(c.UserContext(), id, body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "reset")
	}
	return h.respondMutation(c, id, "reset")
}

// AssignIdentifier handles POST /api/documents/:id/identifier
// @Summary Assign identifier
// @Description Give a document an explicit or automatically numbered identifier
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body IdentifierRequest false "Identifier"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/identifier [post]
func (h *DocumentHandler) AssignIdentifier(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "assignIdentifier")
	}
	var body IdentifierRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "assignIdentifier")
	}
	if err := h.Lifecycle.AssignIdentifier(c.UserContext(), id, body.Identifier, body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "assignIdentifier")
	}
	return h.respondMutation(c, id, "assignIdentifier")
}

// SetRecommendation handles POST /api/documents/:id/recommendation
// @Summary Set recommendation
// @Description Store the recommended state; an empty target clears it
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body StateRequest false "Recommended state"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/recommendation [post]
func (h *DocumentHandler) SetRecommendation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "setRecommendation")
	}
	var body StateRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "setRecommendation")
	}
	var ref *services.StateRef
	if body.StateID != 0 || body.Name != "" {
		r := body.ref()
		ref = &r
	}
	if err := h.Lifecycle.SetRecommendation(c.UserContext(), id, ref, body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "setRecommendation")
	}
	return h.respondMutation(c, id, "setRecommendation")
}

// FollowRecommendation handles POST /api/documents/:id/recommendation/follow
// @Summary Follow recommendation
// @Description Move a document into its recommended state
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body RevisionGuard false "Revision check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/recommendation/follow [post]
func (h *DocumentHandler) FollowRecommendation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "followRecommendation")
	}
	var body RevisionGuard
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "followRecommendation")
	}
	if err := h.Lifecycle.FollowRecommendation(c.UserContext(), id, body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "followRecommendation")
	}
	return h.respondMutation(c, id, "followRecommendation")
}

// Support handles POST /api/documents/:id/support
// @Summary Support a document
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body PersonRequest false "Supporter"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/support [post]
func (h *DocumentHandler) Support(c *fiber.Ctx) error {
	return h.personAction(c, "support", h.Lifecycle.Support)
}

// Unsupport handles DELETE /api/documents/:id/support
// @Summary Withdraw support
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body PersonRequest false "Supporter"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/support [delete]
func (h *DocumentHandler) Unsupport(c *fiber.Ctx) error {
	return h.personAction(c, "unsupport", h.Lifecycle.Unsupport)
}

// AddCandidate handles POST /api/documents/:id/candidates
// @Summary Nominate a candidate
// @Tags Candidates
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body PersonRequest false "Candidate"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/candidates [post]
func (h *DocumentHandler) AddCandidate(c *fiber.Ctx) error {
	return h.personAction(c, "addCandidate", func(ctx context.Context, id uint64, person string, expected *uint64, actor services.Actor) error {
		_, err := h.Lifecycle.AddCandidate(ctx, id, person, expected, actor)
		return err
	})
}

// RemoveCandidate handles DELETE /api/documents/:id/candidates/:person?blocked=
// @Summary Withdraw or block a candidate
// @Tags Candidates
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param person path string true "Person ID"
// @Param blocked query bool false "Keep the candidate listed but off future ballots"
// @Param body body RevisionGuard false "Revision check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/candidates/{person} [delete]
func (h *DocumentHandler) RemoveCandidate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "removeCandidate")
	}
	blocked, err := queryBool(c, "blocked")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "removeCandidate")
	}
	var body RevisionGuard
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "removeCandidate")
	}
	if err := h.Lifecycle.RemoveCandidate(c.UserContext(), id, c.Params("person"), blocked, body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "removeCandidate")
	}
	return h.respondMutation(c, id, "removeCandidate")
}

// SetElected handles POST /api/documents/:id/candidates/:person/elected
// @Summary Mark a candidate elected
// @Tags Candidates
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param person path string true "Person ID"
// @Param body body ElectedRequest true "Election result"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/candidates/{person}/elected [post]
func (h *DocumentHandler) SetElected(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "setElected")
	}
	var body ElectedRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "setElected")
	}
	if err := h.Lifecycle.SetElected(c.UserContext(), id, c.Params("person"), body.Elected, body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "setElected")
	}
	return h.respondMutation(c, id, "setElected")
}

type personOp func(ctx context.Context, documentID uint64, person string, expected *uint64, actor services.Actor) error

func (h *DocumentHandler) personAction(c *fiber.Ctx, operation string, op personOp) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, operation)
	}
	var body PersonRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, operation)
	}
	if err := op(c.UserContext(), id, body.Person, body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, operation)
	}
	return h.respondMutation(c, id, operation)
}
