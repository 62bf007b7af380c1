package schema

import "sort"

// PipelineFile is the in-memory shape of a pipeline definition document.
// The document declares shared variables, the active pipeline, and the
// pipelines themselves as ordered step lists.
type PipelineFile struct {
	Vars      map[string]any    `yaml:"vars" json:"vars,omitempty"`
	Use       string            `yaml:"use" json:"use,omitempty"`
	Pipelines map[string][]Step `yaml:"pipelines" json:"pipelines"`
}

// Step is one entry in a pipeline: a task reference, invocation mode,
// raw (unresolved) parameters, an optional result key, and an optional
// guard condition.
type Step struct {
	Task      string         `yaml:"task" json:"task"`
	Mode      StepMode       `yaml:"mode" json:"mode,omitempty"`
	Kwargs    map[string]any `yaml:"kwargs" json:"kwargs,omitempty"`
	ResultKey string         `yaml:"result_key" json:"result_key,omitempty"`
	When      *Guard         `yaml:"when" json:"when,omitempty"`
}

// StepMode selects how a step's capability is invoked and how its result
// flows back into the context.
type StepMode string

const (
	// ModeUpdate invokes the capability with a context snapshot plus the
	// resolved kwargs; a returned map is merged into the live context.
	ModeUpdate StepMode = "update"

	// ModeRaw invokes the capability with the resolved kwargs only; the
	// return value is stored verbatim under result_key.
	ModeRaw StepMode = "raw"
)

// OrDefault returns the mode, defaulting to update when unset.
func (m StepMode) OrDefault() StepMode {
	if m == "" {
		return ModeUpdate
	}
	return m
}

// Guard is a pre-check that may cause a step to be skipped without
// invoking its capability. Both operands are subject to variable
// resolution before evaluation.
type Guard struct {
	// FileExists skips the step when the path does not exist on disk.
	FileExists string `yaml:"file_exists" json:"file_exists,omitempty"`

	// Expr skips the step when the expression evaluates to false.
	Expr string `yaml:"expr" json:"expr,omitempty"`
}

// Pipeline returns the step list selected by the Use name.
func (f *PipelineFile) Pipeline() ([]Step, error) {
	steps, ok := f.Pipelines[f.Use]
	if !ok {
		return nil, NewErrorf(ErrCodeConfig, "pipeline %q not found in definition", f.Use).
			WithDetails(map[string]any{"available": f.PipelineNames()})
	}
	return steps, nil
}

// PipelineNames returns the declared pipeline names in sorted order.
func (f *PipelineFile) PipelineNames() []string {
	names := make([]string, 0, len(f.Pipelines))
	for name := range f.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
