package workflow

import (
	"fmt"
	"os"

	"github.com/localnerve/assemblydb/data"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"gopkg.in/yaml.v3"
)

// StateSpec declares one state of a workflow definition
type StateSpec struct {
	Name                  string   `yaml:"name"`
	ActionWord            string   `yaml:"action_word"`
	RecommendationLabel   string   `yaml:"recommendation_label"`
	AllowSupport          bool     `yaml:"allow_support"`
	AllowCreatePoll       bool     `yaml:"allow_create_poll"`
	AllowSubmitterEdit    bool     `yaml:"allow_submitter_edit"`
	RequiresNewVersion    bool     `yaml:"requires_new_version"`
	DontSetIdentifier     bool     `yaml:"dont_set_identifier"`
	LeaveOldVersionActive bool     `yaml:"leave_old_version_active"`
	NextStates            []string `yaml:"next_states"`
}

// Spec declares a workflow. Edges reference states by name within the
// same workflow.
type Spec struct {
	Name       string      `yaml:"name"`
	Kind       string      `yaml:"kind"`
	FirstState string      `yaml:"first_state"`
	States     []StateSpec `yaml:"states"`
}

type specFile struct {
	Workflows []Spec `yaml:"workflows"`
}

// ParseSpecs decodes and validates a workflow definition document
func ParseSpecs(raw []byte) ([]Spec, error) {
	var file specFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, types.NewError(types.KindConfiguration, nil, "invalid workflow definitions: %v", err)
	}
	for _, spec := range file.Workflows {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Workflows, nil
}

// BuiltinSpecs returns the workflows shipped with the binary
func BuiltinSpecs() ([]Spec, error) {
	return ParseSpecs(data.BuiltinWorkflows)
}

// LoadSpecs returns the built-in workflows followed by the ones declared in
// path, when path is set
func LoadSpecs(path string) ([]Spec, error) {
	specs, err := BuiltinSpecs()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return specs, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflows file: %w", err)
	}
	extra, err := ParseSpecs(raw)
	if err != nil {
		return nil, err
	}
	return append(specs, extra...), nil
}

// Validate checks a definition for the errors bootstrap would otherwise
// persist: unknown or duplicate states and a missing first state.
func (s Spec) Validate() error {
	if s.Name == "" {
		return types.NewError(types.KindConfiguration, nil, "workflow without a name")
	}
	if s.Kind != models.KindMotion && s.Kind != models.KindAssignment {
		return types.NewError(types.KindConfiguration, s.Kind, "workflow %q has an unknown kind", s.Name)
	}
	if len(s.States) == 0 {
		return types.NewError(types.KindConfiguration, s.Name, "workflow has no states")
	}

	names := make(map[string]struct{}, len(s.States))
	for _, st := range s.States {
		if st.Name == "" {
			return types.NewError(types.KindConfiguration, s.Name, "state without a name")
		}
		if _, dup := names[st.Name]; dup {
			return types.NewError(types.KindConfiguration, st.Name, "duplicate state in workflow %q", s.Name)
		}
		names[st.Name] = struct{}{}
	}
	for _, st := range s.States {
		for _, next := range st.NextStates {
			if _, ok := names[next]; !ok {
				return types.NewError(types.KindConfiguration, next,
					"state %q of workflow %q points to a state outside the workflow", st.Name, s.Name)
			}
		}
	}
	if _, ok := names[s.FirstState]; !ok {
		return types.NewError(types.KindConfiguration, s.FirstState, "workflow %q has no valid first state", s.Name)
	}
	return nil
}
