package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTool is returned when registering a name twice.
	ErrDuplicateTool = errors.New("duplicate tool")
	// ErrUnknownTool is returned when invoking a name that was never registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// InvalidParametersError reports a schema violation detected before the
// handler runs.
type InvalidParametersError struct {
	Tool   string
	Reason string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("invalid parameters for %s: %s", e.Tool, e.Reason)
}

// ToolExecutionError wraps a failure raised by a tool handler.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}
