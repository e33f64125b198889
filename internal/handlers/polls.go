package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/ballot"
	"github.com/localnerve/assemblydb/internal/middleware"
	"github.com/localnerve/assemblydb/internal/services"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/localnerve/assemblydb/internal/utils"
	"github.com/shopspring/decimal"
)

// PollHandler handles the ballot endpoints
type PollHandler struct {
	Lifecycle *services.Lifecycle
	Polls     *services.PollEngine
}

// CreatePollRequest is the body of POST /documents/{id}/polls
type CreatePollRequest struct {
	RevisionGuard
	VoteMethod *string `json:"vote_method"`
}

// RecordVotesRequest is a complete ballot submission. A single option may be
// sent as an object instead of an array.
type RecordVotesRequest struct {
	Options      types.FlexList[services.OptionVotesInput] `json:"options"`
	VotesValid   decimal.NullDecimal                       `json:"votes_valid"`
	VotesInvalid decimal.NullDecimal                       `json:"votes_invalid"`
	VotesCast    decimal.NullDecimal                       `json:"votes_cast"`
}

func (r RecordVotesRequest) input() services.VotesInput {
	return services.VotesInput{
		Options:      r.Options.Slice(),
		VotesValid:   r.VotesValid,
		VotesInvalid: r.VotesInvalid,
		VotesCast:    r.VotesCast,
	}
}

// PublishRequest is the body of POST /polls/{id}/publish. Omitting published
// publishes the poll.
type PublishRequest struct {
	Published *bool `json:"published"`
}

// ListPolls handles GET /api/documents/:id/polls
// @Summary List polls
// @Description Polls of a document, unpublished results withheld from non-managers
// @Tags Polls
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {array} models.Poll
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/polls [get]
func (h *PollHandler) ListPolls(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "listPolls")
	}
	polls, err := h.Polls.ListPolls(c.UserContext(), id, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "listPolls")
	}
	return c.JSON(polls)
}

// CreatePoll handles POST /api/documents/:id/polls
// @Summary Create a poll
// @Description Open a new ballot for a document in a state that allows polls
// @Tags Polls
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body CreatePollRequest false "Vote method override"
// @Success 201 {object} models.Poll
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/polls [post]
func (h *PollHandler) CreatePoll(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "createPoll")
	}
	var body CreatePollRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "createPoll")
	}

	var override *ballot.VoteMethod
	if body.VoteMethod != nil {
		m := ballot.VoteMethod(*body.VoteMethod)
		override = &m
	}

	poll, err := h.Lifecycle.CreatePoll(c.UserContext(), id, override, body.expected(), middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "createPoll")
	}
	return c.Status(fiber.StatusCreated).JSON(poll)
}

// GetPoll handles GET /api/polls/:id
// @Summary Get a poll
// @Tags Polls
// @Produce json
// @Param id path int true "Poll ID"
// @Success 200 {object} models.Poll
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /polls/{id} [get]
func (h *PollHandler) GetPoll(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "getPoll")
	}
	poll, err := h.Polls.GetPoll(c.UserContext(), id, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "getPoll")
	}
	return c.JSON(poll)
}

// DeletePoll handles DELETE /api/polls/:id
// @Summary Delete a poll
// @Description Delete a poll with its options and votes. Poll numbers are not reused.
// @Tags Polls
// @Produce json
// @Param id path int true "Poll ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /polls/{id} [delete]
func (h *PollHandler) DeletePoll(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "deletePoll")
	}
	if err := h.Polls.DeletePoll(c.UserContext(), id, middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "deletePoll")
	}
	return utils.MutationSuccessResponse(c, 0, 1)
}

// RecordVotes handles POST /api/polls/:id/votes
// @Summary Record votes
// @Description Replace the recorded values of a poll with a complete ballot sheet
// @Tags Polls
// @Accept json
// @Produce json
// @Param id path int true "Poll ID"
// @Param body body RecordVotesRequest true "Ballot sheet"
// @Success 200 {object} models.Poll
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /polls/{id}/votes [post]
func (h *PollHandler) RecordVotes(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "recordVotes")
	}
	var body RecordVotesRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "recordVotes")
	}
	poll, err := h.Polls.RecordVotes(c.UserContext(), id, body.input(), middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "recordVotes")
	}
	return c.JSON(poll)
}

// Tally handles GET /api/polls/:id/tally?entitled=
// @Summary Tally a poll
// @Description Raw counts and percentages of the recorded votes
// @Tags Polls
// @Produce json
// @Param id path int true "Poll ID"
// @Param entitled query number false "Number of entitled voters"
// @Success 200 {object} ballot.Result
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /polls/{id}/tally [get]
func (h *PollHandler) Tally(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "tally")
	}

	var entitled decimal.NullDecimal
	if raw := c.Query("entitled"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			return utils.CoreErrorResponse(c, types.NewError(types.KindInvalidInput, raw, "invalid entitled"), "tally")
		}
		entitled = decimal.NewNullDecimal(d)
	}

	result, err := h.Polls.Tally(c.UserContext(), id, entitled, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "tally")
	}
	return c.JSON(result)
}

// SetPublished handles POST /api/polls/:id/publish
// @Summary Publish or unpublish a poll
// @Tags Polls
// @Accept json
// @Produce json
// @Param id path int true "Poll ID"
// @Param body body PublishRequest false "Publication flag"
// @Success 200 {object} models.Poll
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /polls/{id}/publish [post]
func (h *PollHandler) SetPublished(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "setPublished")
	}
	var body PublishRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "setPublished")
	}
	published := body.Published == nil || *body.Published

	poll, err := h.Polls.SetPublished(c.UserContext(), id, published, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "setPublished")
	}
	return c.JSON(poll)
}
