package config

import (
	"encoding/json"

	"github.com/localnerve/assemblydb/internal/ballot"
	"github.com/localnerve/assemblydb/internal/types"
)

// Identifier numbering modes
const (
	NumberingPerCategory = "per_category"
	NumberingSerial      = "serial"
	NumberingManual      = "manual"
)

// VoteMethodAuto selects the assignment vote method from the candidate count
const VoteMethodAuto = "auto"

// Assembly is the engine configuration. Values are copied, never shared:
// every operation reads one snapshot.
type Assembly struct {
	MinSupporters             int    `json:"min_supporters"`
	RemoveSupportersOnEdit    bool   `json:"remove_supporters_on_edit"`
	AutoRemoveSupporters      bool   `json:"auto_remove_supporters"`
	IdentifierNumbering       string `json:"identifier_numbering"`
	IdentifierMinDigits       int    `json:"identifier_min_digits"`
	IdentifierWithBlank       bool   `json:"identifier_with_blank"`
	MotionPollPercentBase     string `json:"motion_poll_percent_base"`
	AssignmentPollPercentBase string `json:"assignment_poll_percent_base"`
	AssignmentPollVoteMethod  string `json:"assignment_poll_vote_method"`
	MotionWorkflow            string `json:"motion_workflow"`
	AssignmentWorkflow        string `json:"assignment_workflow"`
}

// DefaultAssembly returns the built-in engine defaults
func DefaultAssembly() Assembly {
	return Assembly{
		MinSupporters:             0,
		RemoveSupportersOnEdit:    false,
		AutoRemoveSupporters:      true,
		IdentifierNumbering:       NumberingPerCategory,
		IdentifierMinDigits:       1,
		IdentifierWithBlank:       false,
		MotionPollPercentBase:     string(ballot.AllValidVotes),
		AssignmentPollPercentBase: string(ballot.AllValidVotes),
		AssignmentPollVoteMethod:  VoteMethodAuto,
		MotionWorkflow:            "Simple Workflow",
		AssignmentWorkflow:        "Election Workflow",
	}
}

// LoadAssembly reads ASSEMBLY_* environment overrides on top of the defaults
func LoadAssembly() Assembly {
	def := DefaultAssembly()
	return Assembly{
		MinSupporters:             getEnvAsInt("ASSEMBLY_MIN_SUPPORTERS", def.MinSupporters),
		RemoveSupportersOnEdit:    getEnvAsBool("ASSEMBLY_REMOVE_SUPPORTERS_ON_EDIT", def.RemoveSupportersOnEdit),
		AutoRemoveSupporters:      getEnvAsBool("ASSEMBLY_AUTO_REMOVE_SUPPORTERS", def.AutoRemoveSupporters),
		IdentifierNumbering:       getEnv("ASSEMBLY_IDENTIFIER_NUMBERING", def.IdentifierNumbering),
		IdentifierMinDigits:       getEnvAsInt("ASSEMBLY_IDENTIFIER_MIN_DIGITS", def.IdentifierMinDigits),
		IdentifierWithBlank:       getEnvAsBool("ASSEMBLY_IDENTIFIER_WITH_BLANK", def.IdentifierWithBlank),
		MotionPollPercentBase:     getEnv("ASSEMBLY_MOTION_POLL_PERCENT_BASE", def.MotionPollPercentBase),
		AssignmentPollPercentBase: getEnv("ASSEMBLY_ASSIGNMENT_POLL_PERCENT_BASE", def.AssignmentPollPercentBase),
		AssignmentPollVoteMethod:  getEnv("ASSEMBLY_ASSIGNMENT_POLL_VOTE_METHOD", def.AssignmentPollVoteMethod),
		MotionWorkflow:            getEnv("ASSEMBLY_MOTION_WORKFLOW", def.MotionWorkflow),
		AssignmentWorkflow:        getEnv("ASSEMBLY_ASSIGNMENT_WORKFLOW", def.AssignmentWorkflow),
	}
}

// Validate checks value ranges and enum names
func (a Assembly) Validate() error {
	if a.MinSupporters < 0 {
		return types.NewError(types.KindConfiguration, a.MinSupporters, "min_supporters must not be negative")
	}
	if a.IdentifierMinDigits < 1 {
		return types.NewError(types.KindConfiguration, a.IdentifierMinDigits, "identifier_min_digits must be at least 1")
	}
	switch a.IdentifierNumbering {
	case NumberingPerCategory, NumberingSerial, NumberingManual:
	default:
		return types.NewError(types.KindConfiguration, a.IdentifierNumbering, "unknown identifier_numbering")
	}
	if _, err := ballot.ParsePercentBase(a.MotionPollPercentBase); err != nil {
		return types.NewError(types.KindConfiguration, a.MotionPollPercentBase, "unknown motion_poll_percent_base")
	}
	if _, err := ballot.ParsePercentBase(a.AssignmentPollPercentBase); err != nil {
		return types.NewError(types.KindConfiguration, a.AssignmentPollPercentBase, "unknown assignment_poll_percent_base")
	}
	if a.AssignmentPollVoteMethod != VoteMethodAuto {
		if _, err := ballot.ParseVoteMethod(a.AssignmentPollVoteMethod); err != nil {
			return types.NewError(types.KindConfiguration, a.AssignmentPollVoteMethod, "unknown assignment_poll_vote_method")
		}
	}
	if a.MotionWorkflow == "" || a.AssignmentWorkflow == "" {
		return types.NewError(types.KindConfiguration, nil, "default workflows must be named")
	}
	return nil
}

// Keys lists the settable keys in declaration order
func Keys() []string {
	return []string{
		"min_supporters",
		"remove_supporters_on_edit",
		"auto_remove_supporters",
		"identifier_numbering",
		"identifier_min_digits",
		"identifier_with_blank",
		"motion_poll_percent_base",
		"assignment_poll_percent_base",
		"assignment_poll_vote_method",
		"motion_workflow",
		"assignment_workflow",
	}
}

// With returns a copy of a with one key replaced by a JSON value. Unknown
// keys and badly typed values are InvalidInput, out of range values are
// ConfigurationError.
func (a Assembly) With(key string, value json.RawMessage) (Assembly, error) {
	fields := map[string]json.RawMessage{}
	raw, err := json.Marshal(a)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return a, err
	}
	if _, ok := fields[key]; !ok {
		return a, types.NewError(types.KindInvalidInput, key, "unknown setting")
	}
	fields[key] = value

	raw, err = json.Marshal(fields)
	if err != nil {
		return a, types.NewError(types.KindInvalidInput, key, "invalid value: %v", err)
	}
	var next Assembly
	if err := json.Unmarshal(raw, &next); err != nil {
		return a, types.NewError(types.KindInvalidInput, key, "invalid value: %v", err)
	}
	if err := next.Validate(); err != nil {
		return a, err
	}
	return next, nil
}

// PercentBase returns the configured base for polls of a document kind
func (a Assembly) PercentBase(kind string) ballot.PercentBase {
	if kind == "assignment" {
		return ballot.PercentBase(a.AssignmentPollPercentBase)
	}
	return ballot.PercentBase(a.MotionPollPercentBase)
}

// Workflow returns the configured default workflow name for a document kind
func (a Assembly) Workflow(kind string) string {
	if kind == "assignment" {
		return a.AssignmentWorkflow
	}
	return a.MotionWorkflow
}
