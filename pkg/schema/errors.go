package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeConfig            = "CONFIG_ERROR"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeTaskResolution    = "TASK_RESOLUTION_ERROR"
	ErrCodeTaskExecution     = "TASK_EXECUTION_ERROR"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeVault             = "VAULT_ERROR"
)

// PipelineError is the structured error type for all conveyor operations.
type PipelineError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Task    string         `json:"task,omitempty"`
	Cause   error          `json:"-"`
}

func (e *PipelineError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("[%s] task %s: %s", e.Code, e.Task, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewError creates a new PipelineError.
func NewError(code, message string) *PipelineError {
	return &PipelineError{Code: code, Message: message}
}

// NewErrorf creates a new PipelineError with a formatted message.
func NewErrorf(code, format string, args ...any) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithTask attaches the task name of the failing step.
func (e *PipelineError) WithTask(task string) *PipelineError {
	e.Task = task
	return e
}

// WithCause attaches an underlying cause.
func (e *PipelineError) WithCause(err error) *PipelineError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *PipelineError) WithDetails(details map[string]any) *PipelineError {
	e.Details = details
	return e
}
