// Package tool implements the capability subsystem: the Tool contract for
// external collaborators (data fetches, searches, analyses), a registry that
// declares what the planner may use, and a FunctionTool adapter exposing
// plain Go functions with schema validated arguments and consistent error
// handling.
package tool

import (
	"fmt"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/internal/util"
)

// Tool is the invocation contract for one external capability.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a proper JSON schema for parameters
//   - Handle errors gracefully and be safe for concurrent calls
//   - Declare Parallelizable()=false when calls must not overlap
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Category returns the capability grouping used by planners.
	Category() core.ToolCategory

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Parallelizable reports whether concurrent calls are safe.
	Parallelizable() bool

	// RequiresAuth reports whether the session must be authenticated.
	RequiresAuth() bool

	// Call executes the tool with structured, schema-validated arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes attached to ToolError for categorization.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeTimeout     = "TIMEOUT"
	CodeAuth        = "AUTH_REQUIRED"
	CodeUnknownTool = "UNKNOWN_TOOL"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
