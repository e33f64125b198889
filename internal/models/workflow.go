package models

import (
	"time"
)

// Document kinds
const (
	KindMotion     = "motion"
	KindAssignment = "assignment"
)

// Workflow is a named state graph shared by all documents of one kind
type Workflow struct {
	WorkflowID   uint64    `gorm:"primaryKey;autoIncrement" json:"workflow_id"`
	Name         string    `gorm:"uniqueIndex;size:255;not null" json:"name"`
	Kind         string    `gorm:"size:32;not null" json:"kind"`
	FirstStateID *uint64   `json:"first_state_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	States       []State   `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"states,omitempty"`
}

// State is one node of a workflow graph
type State struct {
	StateID               uint64   `gorm:"primaryKey;autoIncrement" json:"state_id"`
	WorkflowID            uint64   `gorm:"index;not null" json:"workflow_id"`
	Name                  string   `gorm:"size:255;not null" json:"name"`
	ActionWord            string   `gorm:"size:255" json:"action_word,omitempty"`
	RecommendationLabel   string   `gorm:"size:255" json:"recommendation_label,omitempty"`
	AllowSupport          bool     `gorm:"not null;default:false" json:"allow_support"`
	AllowCreatePoll       bool     `gorm:"not null;default:false" json:"allow_create_poll"`
	AllowSubmitterEdit    bool     `gorm:"not null;default:false" json:"allow_submitter_edit"`
	RequiresNewVersion    bool     `gorm:"not null;default:false" json:"requires_new_version"`
	DontSetIdentifier     bool     `gorm:"not null;default:false" json:"dont_set_identifier"`
	LeaveOldVersionActive bool     `gorm:"not null;default:false" json:"leave_old_version_active"`
	NextStates            []*State `gorm:"many2many:state_next_states;joinForeignKey:StateID;joinReferences:NextStateID" json:"-"`
}

func (Workflow) TableName() string {
	return "workflows"
}

func (State) TableName() string {
	return "states"
}

// StateEdge is a row of the state_next_states join table
type StateEdge struct {
	StateID     uint64 `gorm:"primaryKey"`
	NextStateID uint64 `gorm:"primaryKey"`
}

func (StateEdge) TableName() string {
	return "state_next_states"
}
