// poll_service.go
//
// A workflow and ballot engine for assembly motions and elections
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of assemblydb.
// assemblydb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// assemblydb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with assemblydb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/localnerve/assemblydb/internal/ballot"
	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/metrics"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PollEngine creates, records, tallies and removes ballots
type PollEngine struct {
	db       *gorm.DB
	settings *Settings
	audit    AuditSink
	logger   *slog.Logger
}

// NewPollEngine wires the engine
func NewPollEngine(db *gorm.DB, settings *Settings, audit AuditSink, logger *slog.Logger) *PollEngine {
	return &PollEngine{
		db:       db,
		settings: settings,
		audit:    audit,
		logger:   ResolveLogger(logger),
	}
}

// CreatePoll opens the next ballot of a document. override picks the vote
// method of an assignment ballot instead of the configured one.
func (l *Lifecycle) CreatePoll(ctx context.Context, documentID uint64, override *ballot.VoteMethod, expected *uint64, actor Actor) (*models.Poll, error) {
	var poll *models.Poll
	err := l.mutate(ctx, "create_poll", documentID, expected, actor, func(m *mutation) error {
		if !m.manage() {
			return forbidden("create polls")
		}
		if !m.state.AllowCreatePoll {
			return types.NewError(types.KindInvalidTransition, m.state.Name, "polls cannot be created in this state")
		}
		var err error
		poll, err = l.polls.create(m, override)
		return err
	})
	if err != nil {
		return nil, err
	}
	return poll, nil
}

// create builds the poll inside the caller's document lock
func (e *PollEngine) create(m *mutation, override *ballot.VoteMethod) (*models.Poll, error) {
	var method ballot.VoteMethod
	var options []models.Option

	switch m.doc.Kind {
	case models.KindMotion:
		if override != nil && *override != ballot.YesNoAbstain {
			return nil, types.NewError(types.KindInvalidInput, string(*override), "motion polls are yes/no/abstain polls")
		}
		method = ballot.YesNoAbstain
		options = []models.Option{{Weight: 1}}

	case models.KindAssignment:
		var candidates []models.Candidate
		if err := m.tx.Where("document_id = ?", m.doc.DocumentID).Order("weight").Find(&candidates).Error; err != nil {
			return nil, fmt.Errorf("failed to load candidates: %w", err)
		}
		elected := 0
		for _, c := range candidates {
			if c.Elected {
				elected++
			}
			if !c.Eligible() {
				continue
			}
			options = append(options, models.Option{
				CandidateID: &c.CandidateID,
				PersonID:    &c.PersonID,
				Weight:      len(options) + 1,
			})
		}
		if len(options) == 0 {
			return nil, types.NewError(types.KindNoCandidates, m.doc.DocumentID, "no eligible candidates")
		}

		var err error
		method, err = assignmentMethod(override, m.settings, len(options), m.doc.OpenPosts, elected)
		if err != nil {
			return nil, err
		}

	default:
		return nil, types.NewError(types.KindInvalidInput, m.doc.Kind, "unknown document kind")
	}

	number := m.doc.PollSequence + 1
	poll := models.Poll{
		DocumentID:  m.doc.DocumentID,
		Number:      number,
		VoteMethod:  string(method),
		PercentBase: string(m.settings.PercentBase(m.doc.Kind)),
		Options:     options,
	}
	if err := m.tx.Create(&poll).Error; err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}

	m.set("poll_sequence", number)
	m.doc.PollSequence = number
	m.log("Poll created", map[string]any{"poll": number, "vote_method": string(method)})
	kind := m.doc.Kind
	m.onCommit(func() { metrics.PollCreated(kind, string(method)) })
	return &poll, nil
}

func assignmentMethod(override *ballot.VoteMethod, settings config.Assembly, candidates, openPosts, elected int) (ballot.VoteMethod, error) {
	if override != nil {
		return ballot.ParseVoteMethod(string(*override))
	}
	if settings.AssignmentPollVoteMethod == config.VoteMethodAuto {
		return ballot.AutoVoteMethod(candidates, openPosts, elected), nil
	}
	return ballot.ParseVoteMethod(settings.AssignmentPollVoteMethod)
}

// OptionVotesInput are the submitted columns of one option
type OptionVotesInput struct {
	OptionID uint64                         `json:"option_id"`
	Values   map[string]decimal.NullDecimal `json:"values"`
}

// VotesInput is a complete ballot submission
type VotesInput struct {
	Options      []OptionVotesInput  `json:"options"`
	VotesValid   decimal.NullDecimal `json:"votes_valid"`
	VotesInvalid decimal.NullDecimal `json:"votes_invalid"`
	VotesCast    decimal.NullDecimal `json:"votes_cast"`
}

func (in VotesInput) sheet() ballot.Sheet {
	sheet := ballot.Sheet{
		Options:      make([]ballot.OptionVotes, 0, len(in.Options)),
		VotesValid:   in.VotesValid,
		VotesInvalid: in.VotesInvalid,
		VotesCast:    in.VotesCast,
	}
	for _, opt := range in.Options {
		values := make(map[ballot.Value]decimal.NullDecimal, len(opt.Values))
		for k, v := range opt.Values {
			values[ballot.Value(k)] = v
		}
		sheet.Options = append(sheet.Options, ballot.OptionVotes{OptionID: opt.OptionID, Values: values})
	}
	return sheet
}

// pollContext is a poll with the kind of its document
type pollContext struct {
	poll models.Poll
	kind string
}

func loadPoll(tx *gorm.DB, pollID uint64, lock bool) (*pollContext, error) {
	query := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)})
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var pc pollContext
	err := query.
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("weight") }).
		Preload("Options.Votes").
		First(&pc.poll, pollID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("poll", pollID)
		}
		return nil, fmt.Errorf("failed to load poll: %w", err)
	}

	var doc models.Document
	if err := tx.Select("document_id", "kind").First(&doc, pc.poll.DocumentID).Error; err != nil {
		return nil, fmt.Errorf("failed to load poll document: %w", err)
	}
	pc.kind = doc.Kind
	return &pc, nil
}

// RecordVotes replaces every recorded value of the poll with in. The
// submission is validated as a whole and stored all or nothing.
func (e *PollEngine) RecordVotes(ctx context.Context, pollID uint64, in VotesInput, actor Actor) (*models.Poll, error) {
	var pc *pollContext
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pc, err = loadPoll(tx, pollID, true)
		if err != nil {
			return err
		}
		if !actor.CanManage(pc.kind) {
			return forbidden("record votes")
		}

		method := ballot.VoteMethod(pc.poll.VoteMethod)
		optionIDs := make([]uint64, 0, len(pc.poll.Options))
		for _, opt := range pc.poll.Options {
			optionIDs = append(optionIDs, opt.OptionID)
		}
		if err := ballot.Validate(method, optionIDs, in.sheet()); err != nil {
			return err
		}

		if err := tx.Where("option_id IN ?", optionIDs).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("failed to clear votes: %w", err)
		}

		var votes []models.Vote
		for _, opt := range in.Options {
			for _, value := range method.Values() {
				weight, ok := opt.Values[string(value)]
				if !ok {
					continue
				}
				votes = append(votes, models.Vote{OptionID: opt.OptionID, Value: string(value), Weight: weight})
			}
		}
		if len(votes) > 0 {
			if err := tx.Create(&votes).Error; err != nil {
				return fmt.Errorf("failed to store votes: %w", err)
			}
		}

		if err := tx.Model(&models.Poll{}).Where("poll_id = ?", pollID).Updates(map[string]any{
			"votes_valid":   in.VotesValid,
			"votes_invalid": in.VotesInvalid,
			"votes_cast":    in.VotesCast,
		}).Error; err != nil {
			return fmt.Errorf("failed to store totals: %w", err)
		}
		return nil
	})
	if err != nil {
		e.fail("record_votes", pollID, actor, err)
		return nil, err
	}

	metrics.VotesRecorded(pc.poll.VoteMethod)
	e.record(ctx, pc, "Votes recorded", actor)
	return e.GetPoll(ctx, pollID, actor)
}

// Tally computes the results of a poll. entitled is the electorate size
// used by the AllEntitledVoters base. Results of unpublished polls are only
// returned to managers.
func (e *PollEngine) Tally(ctx context.Context, pollID uint64, entitled decimal.NullDecimal, actor Actor) (*ballot.Result, error) {
	pc, err := loadPoll(e.db.WithContext(ctx), pollID, false)
	if err != nil {
		return nil, err
	}
	if !pc.poll.Published && !actor.CanManage(pc.kind) {
		return nil, types.NewError(types.KindNotPublished, pollID, "poll results are not published")
	}

	result := ballot.Tally(
		ballot.VoteMethod(pc.poll.VoteMethod),
		ballot.PercentBase(pc.poll.PercentBase),
		sheetOf(&pc.poll),
		entitled,
	)
	return &result, nil
}

// sheetOf converts stored votes into a ballot sheet
func sheetOf(poll *models.Poll) ballot.Sheet {
	sheet := ballot.Sheet{
		Options:      make([]ballot.OptionVotes, 0, len(poll.Options)),
		VotesValid:   poll.VotesValid,
		VotesInvalid: poll.VotesInvalid,
		VotesCast:    poll.VotesCast,
	}
	for _, opt := range poll.Options {
		values := make(map[ballot.Value]decimal.NullDecimal, len(opt.Votes))
		for _, v := range opt.Votes {
			values[ballot.Value(v.Value)] = v.Weight
		}
		sheet.Options = append(sheet.Options, ballot.OptionVotes{OptionID: opt.OptionID, Values: values})
	}
	return sheet
}

// DeletePoll removes a poll with its options and votes. The document keeps
// its poll sequence, so the number is never handed out again.
func (e *PollEngine) DeletePoll(ctx context.Context, pollID uint64, actor Actor) error {
	var pc *pollContext
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pc, err = loadPoll(tx, pollID, true)
		if err != nil {
			return err
		}
		if !actor.CanManage(pc.kind) {
			return forbidden("delete polls")
		}
		return deletePolls(tx, []uint64{pollID})
	})
	if err != nil {
		e.fail("delete_poll", pollID, actor, err)
		return err
	}
	e.record(ctx, pc, "Poll deleted", actor)
	return nil
}

// SetPublished flips the visibility of a poll's results
func (e *PollEngine) SetPublished(ctx context.Context, pollID uint64, published bool, actor Actor) (*models.Poll, error) {
	var pc *pollContext
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pc, err = loadPoll(tx, pollID, true)
		if err != nil {
			return err
		}
		if !actor.CanManage(pc.kind) {
			return forbidden("publish polls")
		}
		return tx.Model(&models.Poll{}).Where("poll_id = ?", pollID).Update("published", published).Error
	})
	if err != nil {
		e.fail("set_published", pollID, actor, err)
		return nil, err
	}

	message := "Poll published"
	if !published {
		message = "Poll unpublished"
	}
	e.record(ctx, pc, message, actor)
	return e.GetPoll(ctx, pollID, actor)
}

// GetPoll returns a poll. Non-managers see the recorded values of published
// polls only.
func (e *PollEngine) GetPoll(ctx context.Context, pollID uint64, actor Actor) (*models.Poll, error) {
	pc, err := loadPoll(e.db.WithContext(ctx), pollID, false)
	if err != nil {
		return nil, err
	}
	redact(&pc.poll, pc.kind, actor)
	return &pc.poll, nil
}

// ListPolls returns the polls of a document by number
func (e *PollEngine) ListPolls(ctx context.Context, documentID uint64, actor Actor) ([]models.Poll, error) {
	var doc models.Document
	if err := e.db.WithContext(ctx).Select("document_id", "kind").First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("document", documentID)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	var polls []models.Poll
	err := e.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("weight") }).
		Preload("Options.Votes").
		Where("document_id = ?", documentID).
		Order("number").
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	for i := range polls {
		redact(&polls[i], doc.Kind, actor)
	}
	return polls, nil
}

func redact(poll *models.Poll, kind string, actor Actor) {
	if poll.Published || actor.CanManage(kind) {
		return
	}
	poll.VotesValid = decimal.NullDecimal{}
	poll.VotesInvalid = decimal.NullDecimal{}
	poll.VotesCast = decimal.NullDecimal{}
	for i := range poll.Options {
		poll.Options[i].Votes = nil
	}
}

// deletePolls removes polls with their options and votes
func deletePolls(tx *gorm.DB, pollIDs []uint64) error {
	if len(pollIDs) == 0 {
		return nil
	}
	options := tx.Model(&models.Option{}).Select("option_id").Where("poll_id IN ?", pollIDs)
	if err := tx.Where("option_id IN (?)", options).Delete(&models.Vote{}).Error; err != nil {
		return fmt.Errorf("failed to delete votes: %w", err)
	}
	if err := tx.Where("poll_id IN ?", pollIDs).Delete(&models.Option{}).Error; err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}
	if err := tx.Where("poll_id IN ?", pollIDs).Delete(&models.Poll{}).Error; err != nil {
		return fmt.Errorf("failed to delete polls: %w", err)
	}
	return nil
}

func (e *PollEngine) record(ctx context.Context, pc *pollContext, message string, actor Actor) {
	e.audit.Record(ctx, uuid.NewString(), AuditEvent{
		DocumentID: pc.poll.DocumentID,
		Message:    message,
		ActorID:    actor.ID,
		Data:       map[string]any{"poll": pc.poll.Number},
	})
	e.logger.Info("poll operation completed",
		"event", "poll_operation_completed",
		"module", "polls",
		"layer", "service",
		"poll_id", pc.poll.PollID,
		"document_id", pc.poll.DocumentID,
		"message", message,
		"actor_id", actor.ID,
	)
}

func (e *PollEngine) fail(op string, pollID uint64, actor Actor, err error) {
	metrics.ObserveError(op, err)
	level := slog.LevelError
	if types.KindOf(err) != "" {
		level = slog.LevelInfo
	}
	e.logger.Log(context.Background(), level, "poll operation rejected",
		"event", "poll_"+op+"_rejected",
		"module", "polls",
		"layer", "service",
		"poll_id", pollID,
		"actor_id", actor.ID,
		"error", err.Error(),
	)
}
