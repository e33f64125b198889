package services

import (
	"context"
	"fmt"

	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/metrics"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"gorm.io/gorm"
)

// StateRef names a target state by id, or by name within the document's
// workflow
type StateRef struct {
	ID   uint64 `json:"state_id"`
	Name string `json:"name"`
}

func (l *Lifecycle) resolveState(doc *models.Document, ref StateRef) (*models.State, error) {
	if ref.ID != 0 {
		return l.graph.State(ref.ID)
	}
	if ref.Name == "" {
		return nil, types.NewError(types.KindInvalidInput, nil, "target state is required")
	}
	return l.graph.StateByName(doc.WorkflowID, ref.Name)
}

// transition moves the locked document to target and applies the entry
// side effects of target. override skips the edge and quorum checks.
func (l *Lifecycle) transition(m *mutation, target *models.State, override bool) error {
	current := m.state
	if target.WorkflowID != m.doc.WorkflowID {
		return types.NewError(types.KindInvalidTransition, target.Name, "state belongs to another workflow")
	}
	if target.StateID == current.StateID {
		return types.NewError(types.KindInvalidTransition, target.Name, "document is already in this state")
	}

	if !override {
		if !l.graph.IsTransitionAllowed(current, target) {
			return types.NewError(types.KindInvalidTransition, target.Name,
				"%q cannot follow %q", target.Name, current.Name)
		}
		count, err := countSupporters(m.tx, m.doc.DocumentID)
		if err != nil {
			return err
		}
		if !EnoughSupporters(m.settings.MinSupporters, int(count), current) {
			return types.NewError(types.KindInvalidTransition, target.Name,
				"not enough supporters (%d of %d)", count, m.settings.MinSupporters)
		}
	}

	m.set("state_id", target.StateID)
	m.doc.StateID = target.StateID
	m.state = target
	m.log("State changed", map[string]any{"from": current.Name, "to": target.Name})

	wf, err := l.graph.Workflow(m.doc.WorkflowID)
	if err != nil {
		return err
	}
	m.onCommit(func() { metrics.Transition(wf.Name, target.Name) })

	if !target.DontSetIdentifier && m.doc.Identifier == nil && m.settings.IdentifierNumbering != config.NumberingManual {
		if err := l.assignIdentifier(m, nil); err != nil {
			return err
		}
	}
	if !target.AllowSupport && m.settings.AutoRemoveSupporters {
		return removeSupporters(m, "state")
	}
	return nil
}

// SetState moves a document to another state of its workflow. Submitters
// may follow the workflow's edges once the support quorum is met; managers
// may move to any other state of the workflow.
func (l *Lifecycle) SetState(ctx context.Context, documentID uint64, ref StateRef, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "set_state", documentID, expected, actor, func(m *mutation) error {
		manage := m.manage()
		if !manage {
			submitter, err := m.isSubmitter(actor.ID)
			if err != nil {
				return err
			}
			if !submitter {
				return forbidden("change the state of this document")
			}
		}
		target, err := l.resolveState(m.doc, ref)
		if err != nil {
			return err
		}
		return l.transition(m, target, manage)
	})
}

// Reset puts a document back into the first state of its workflow and
// clears its identifier
func (l *Lifecycle) Reset(ctx context.Context, documentID uint64, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "reset", documentID, expected, actor, func(m *mutation) error {
		if !m.manage() {
			return forbidden("reset this document")
		}
		first, err := l.graph.FirstState(m.doc.WorkflowID)
		if err != nil {
			return err
		}

		from := m.state.Name
		m.set("state_id", first.StateID)
		m.set("identifier", nil)
		m.set("identifier_number", 0)
		m.doc.StateID = first.StateID
		m.doc.Identifier = nil
		m.state = first
		m.log("State reset", map[string]any{"from": from, "to": first.Name})

		if !first.AllowSupport && m.settings.AutoRemoveSupporters {
			return removeSupporters(m, "state")
		}
		return nil
	})
}

// SetRecommendation stores the state a committee recommends. A nil ref
// clears it.
func (l *Lifecycle) SetRecommendation(ctx context.Context, documentID uint64, ref *StateRef, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "set_recommendation", documentID, expected, actor, func(m *mutation) error {
		if !m.manage() {
			return forbidden("set recommendations")
		}
		if ref == nil {
			m.set("recommendation_id", nil)
			m.log("Recommendation cleared", nil)
			return nil
		}

		rec, err := l.resolveState(m.doc, *ref)
		if err != nil {
			return err
		}
		if rec.WorkflowID != m.doc.WorkflowID || rec.RecommendationLabel == "" {
			return types.NewError(types.KindInvalidInput, rec.Name, "state is not a recommendation of this workflow")
		}
		m.set("recommendation_id", rec.StateID)
		m.log("Recommendation set", map[string]any{"recommendation": rec.RecommendationLabel})
		return nil
	})
}

// FollowRecommendation moves the document into its recommended state
func (l *Lifecycle) FollowRecommendation(ctx context.Context, documentID uint64, expected *uint64, actor Actor) error {
	return l.mutate(ctx, "follow_recommendation", documentID, expected, actor, func(m *mutation) error {
		if !m.manage() {
			return forbidden("follow recommendations")
		}
		if m.doc.RecommendationID == nil {
			return types.NewError(types.KindInvalidInput, nil, "document has no recommendation")
		}
		target, err := l.graph.State(*m.doc.RecommendationID)
		if err != nil {
			return err
		}
		if err := l.transition(m, target, true); err != nil {
			return err
		}
		m.log("Recommendation followed", map[string]any{"recommendation": target.RecommendationLabel})
		return nil
	})
}

// Action names returned by AllowedActions
const (
	ActionEdit              = "edit"
	ActionDelete            = "delete"
	ActionSupport           = "support"
	ActionUnsupport         = "unsupport"
	ActionCreatePoll        = "create_poll"
	ActionResetState        = "reset_state"
	ActionSetIdentifier     = "set_identifier"
	ActionSetRecommendation = "set_recommendation"
	ActionPermitVersion     = "permit_version"
	ActionSetStatePrefix    = "set_state:"
)

// AllowedActions lists what the actor may do with the document right now,
// for callers deciding which controls to render
func (l *Lifecycle) AllowedActions(ctx context.Context, documentID uint64, actor Actor) ([]string, error) {
	doc, err := l.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	state, err := l.graph.State(doc.StateID)
	if err != nil {
		return nil, err
	}
	first, err := l.graph.FirstState(doc.WorkflowID)
	if err != nil {
		return nil, err
	}
	settings := l.settings.Snapshot()

	manage := actor.CanManage(doc.Kind)
	submitter, supporter := false, false
	for _, s := range doc.Submitters {
		if s.PersonID == actor.ID {
			submitter = true
		}
	}
	for _, s := range doc.Supporters {
		if s.PersonID == actor.ID {
			supporter = true
		}
	}
	enough := EnoughSupporters(settings.MinSupporters, len(doc.Supporters), state)

	var actions []string
	if manage || (submitter && state.AllowSubmitterEdit) {
		actions = append(actions, ActionEdit)
	}
	if manage || (submitter && doc.StateID == first.StateID) {
		actions = append(actions, ActionDelete)
	}
	if state.AllowSupport && settings.MinSupporters > 0 && actor.CanParticipate(doc.Kind) && !submitter && !supporter {
		actions = append(actions, ActionSupport)
	}
	if state.AllowSupport && supporter {
		actions = append(actions, ActionUnsupport)
	}
	if manage && state.AllowCreatePoll {
		actions = append(actions, ActionCreatePoll)
	}
	if manage {
		actions = append(actions, ActionResetState)
		if doc.Identifier == nil {
			actions = append(actions, ActionSetIdentifier)
		}
		if len(l.graph.Recommendations(doc.WorkflowID)) > 0 {
			actions = append(actions, ActionSetRecommendation)
		}
		if len(doc.Versions) > 1 {
			actions = append(actions, ActionPermitVersion)
		}
	}
	if manage || (submitter && enough) {
		for _, next := range l.graph.AllowedTransitions(state) {
			actions = append(actions, ActionSetStatePrefix+next.Name)
		}
	}
	return actions, nil
}

func countSupporters(tx *gorm.DB, documentID uint64) (int64, error) {
	var count int64
	if err := tx.Model(&models.Supporter{}).Where("document_id = ?", documentID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count supporters: %w", err)
	}
	return count, nil
}
