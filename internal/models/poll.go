package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Poll is one ballot of a document
type Poll struct {
	PollID       uint64              `gorm:"primaryKey;autoIncrement" json:"poll_id"`
	DocumentID   uint64              `gorm:"index;not null" json:"document_id"`
	Number       int                 `gorm:"not null" json:"number"`
	VoteMethod   string              `gorm:"size:32;not null" json:"vote_method"`
	PercentBase  string              `gorm:"size:32;not null" json:"percent_base"`
	Published    bool                `gorm:"not null;default:false" json:"published"`
	VotesValid   decimal.NullDecimal `gorm:"type:decimal(20,6)" json:"votes_valid"`
	VotesInvalid decimal.NullDecimal `gorm:"type:decimal(20,6)" json:"votes_invalid"`
	VotesCast    decimal.NullDecimal `gorm:"type:decimal(20,6)" json:"votes_cast"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Options      []Option            `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"options"`
}

// Option is a ballot line: the motion itself or one candidate
type Option struct {
	OptionID    uint64  `gorm:"primaryKey;autoIncrement" json:"option_id"`
	PollID      uint64  `gorm:"index;not null" json:"poll_id"`
	CandidateID *uint64 `json:"candidate_id"`
	PersonID    *string `gorm:"size:64" json:"person_id"`
	Weight      int     `gorm:"not null;default:0" json:"weight"`
	Votes       []Vote  `gorm:"foreignKey:OptionID;constraint:OnDelete:CASCADE" json:"votes"`
}

// Vote is one recorded value column of an option. A NULL weight is "not counted".
type Vote struct {
	VoteID   uint64              `gorm:"primaryKey;autoIncrement" json:"-"`
	OptionID uint64              `gorm:"uniqueIndex:idx_vote_option_value;not null" json:"-"`
	Value    string              `gorm:"uniqueIndex:idx_vote_option_value;size:16;not null" json:"value"`
	Weight   decimal.NullDecimal `gorm:"type:decimal(20,6)" json:"weight"`
}

func (Poll) TableName() string {
	return "polls"
}

func (Option) TableName() string {
	return "poll_options"
}

func (Vote) TableName() string {
	return "poll_votes"
}
