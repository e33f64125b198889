package models

import (
	"time"
)

// Category scopes per-category identifier numbering
type Category struct {
	CategoryID uint64    `gorm:"primaryKey;autoIncrement" json:"category_id"`
	Name       string    `gorm:"uniqueIndex;size:255;not null" json:"name"`
	Prefix     string    `gorm:"size:32" json:"prefix"`
	CreatedAt  time.Time `json:"created_at"`
}

// Document is a motion or an assignment. Both kinds share the workflow
// machinery; OpenPosts and Candidates are only used by assignments.
type Document struct {
	DocumentID       uint64    `gorm:"primaryKey;autoIncrement" json:"document_id"`
	Kind             string    `gorm:"size:32;index;not null" json:"kind"`
	WorkflowID       uint64    `gorm:"not null" json:"workflow_id"`
	StateID          uint64    `gorm:"not null" json:"state_id"`
	RecommendationID *uint64   `json:"recommendation_id"`
	CategoryID       *uint64   `json:"category_id"`
	Identifier       *string   `gorm:"uniqueIndex;size:255" json:"identifier"`
	IdentifierNumber int       `gorm:"not null;default:0" json:"identifier_number"`
	ActiveVersionID  *uint64   `json:"active_version_id"`
	OpenPosts        int       `gorm:"not null;default:0" json:"open_posts"`
	PollSequence     int       `gorm:"not null;default:0" json:"poll_sequence"`
	Revision         uint64    `gorm:"not null;default:0" json:"revision"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	State          State       `gorm:"references:StateID" json:"state"`
	Recommendation *State      `gorm:"foreignKey:RecommendationID;references:StateID" json:"recommendation,omitempty"`
	Category       *Category   `gorm:"references:CategoryID" json:"category,omitempty"`
	Versions       []Version   `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	Submitters     []Submitter `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"submitters,omitempty"`
	Supporters     []Supporter `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"supporters,omitempty"`
	Candidates     []Candidate `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"candidates,omitempty"`
	Polls          []Poll      `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"polls,omitempty"`
}

// ActiveVersion picks the active version from versions ordered by number:
// the pinned one when set, else the most recent
func ActiveVersion(pinned *uint64, versions []Version) *Version {
	if len(versions) == 0 {
		return nil
	}
	if pinned != nil {
		for i := range versions {
			if versions[i].VersionID == *pinned {
				return &versions[i]
			}
		}
	}
	return &versions[len(versions)-1]
}

// Active returns the active version of a document loaded with its versions
func (d *Document) Active() *Version {
	return ActiveVersion(d.ActiveVersionID, d.Versions)
}

// Version is an append-only snapshot of a document's text
type Version struct {
	VersionID     uint64    `gorm:"primaryKey;autoIncrement" json:"version_id"`
	DocumentID    uint64    `gorm:"uniqueIndex:idx_version_number;not null" json:"document_id"`
	VersionNumber int       `gorm:"uniqueIndex:idx_version_number;not null" json:"version_number"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Text          string    `gorm:"type:text" json:"text"`
	Reason        string    `gorm:"type:text" json:"reason"`
	Identifier    *string   `gorm:"size:255" json:"identifier"`
	Rejected      bool      `gorm:"not null;default:false" json:"rejected"`
	CreatedBy     string    `gorm:"size:64" json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// SameContent reports whether the version already holds the given text
func (v Version) SameContent(title, text, reason string) bool {
	return v.Title == title && v.Text == text && v.Reason == reason
}

// Submitter is an author of a document, ordered by Weight
type Submitter struct {
	SubmitterID uint64 `gorm:"primaryKey;autoIncrement" json:"submitter_id"`
	DocumentID  uint64 `gorm:"uniqueIndex:idx_submitter_person;not null" json:"document_id"`
	PersonID    string `gorm:"uniqueIndex:idx_submitter_person;size:64;not null" json:"person_id"`
	Weight      int    `gorm:"not null;default:0" json:"weight"`
}

// Supporter endorses a document during the support phase
type Supporter struct {
	SupporterID uint64    `gorm:"primaryKey;autoIncrement" json:"supporter_id"`
	DocumentID  uint64    `gorm:"uniqueIndex:idx_supporter_person;not null" json:"document_id"`
	PersonID    string    `gorm:"uniqueIndex:idx_supporter_person;size:64;not null" json:"person_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Candidate stands for election in an assignment
type Candidate struct {
	CandidateID uint64 `gorm:"primaryKey;autoIncrement" json:"candidate_id"`
	DocumentID  uint64 `gorm:"uniqueIndex:idx_candidate_person;not null" json:"document_id"`
	PersonID    string `gorm:"uniqueIndex:idx_candidate_person;size:64;not null" json:"person_id"`
	Blocked     bool   `gorm:"not null;default:false" json:"blocked"`
	Elected     bool   `gorm:"not null;default:false" json:"elected"`
	Weight      int    `gorm:"not null;default:0" json:"weight"`
}

// Eligible reports whether the candidate gets an option on new ballots
func (c Candidate) Eligible() bool {
	return !c.Blocked && !c.Elected
}

func (Category) TableName() string {
	return "categories"
}

func (Document) TableName() string {
	return "documents"
}

func (Version) TableName() string {
	return "versions"
}

func (Submitter) TableName() string {
	return "submitters"
}

func (Supporter) TableName() string {
	return "supporters"
}

func (Candidate) TableName() string {
	return "candidates"
}
