package tool

import (
	"fmt"
	"time"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// Tool. It holds a lightweight JSON-schema-like parameter specification,
// validates supplied arguments against it before execution, and normalizes
// error handling so callers receive *ToolError with consistent codes:
//
//	VALIDATION_ERROR -> schema / argument mismatch
//	EXECUTION_ERROR  -> underlying function returned an error (non-ToolError)
//	(custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type FunctionTool struct {
	name         string
	description  string
	category     core.ToolCategory
	parameters   map[string]any
	serial       bool
	requiresAuth bool
	fn           func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// FunctionToolOption customizes a FunctionTool at construction time.
type FunctionToolOption func(*FunctionTool)

// WithSerialExecution marks the tool as unsafe for concurrent calls.
func WithSerialExecution() FunctionToolOption {
	return func(t *FunctionTool) { t.serial = true }
}

// WithAuthRequired marks the tool as requiring an authenticated session.
func WithAuthRequired() FunctionToolOption {
	return func(t *FunctionTool) { t.requiresAuth = true }
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	lookup := NewFunctionTool(
//	  "stock_lookup",
//	  core.CategoryMarketAnalysis,
//	  "Fetch the latest quote for a ticker symbol",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "symbol": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"symbol"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return quotes.Fetch(tc.Context(), args["symbol"].(string))
//	  },
//	)
func NewFunctionTool(
	name string,
	category core.ToolCategory,
	description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
	opts ...FunctionToolOption,
) *FunctionTool {
	t := &FunctionTool{
		name:        name,
		description: description,
		category:    category,
		parameters:  parameters,
		fn:          fn,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection. Convenience for simple argument containers.
func NewFunctionToolFromStruct(
	name string,
	category core.ToolCategory,
	description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
	opts ...FunctionToolOption,
) *FunctionTool {
	return NewFunctionTool(name, category, description, util.CreateSchema(structType), fn, opts...)
}

// Name returns the unique tool name used in plans and execution records.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Category returns the capability grouping.
func (t *FunctionTool) Category() core.ToolCategory { return t.category }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Parallelizable reports whether concurrent calls are safe.
func (t *FunctionTool) Parallelizable() bool { return !t.serial }

// RequiresAuth reports whether the session must be authenticated.
func (t *FunctionTool) RequiresAuth() bool { return t.requiresAuth }

// Call validates the provided args against the declared schema then invokes
// the underlying function. Validation or execution failures are wrapped (or
// passed through) as *ToolError for uniform downstream handling.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "execution_id", toolCtx.ExecutionID())

	if t.requiresAuth && !toolCtx.Authenticated() {
		logger.Warn("tool.call.auth_required", "tool", t.name)
		return nil, &ToolError{
			Tool:    t.name,
			Message: "session is not authenticated",
			Code:    CodeAuth,
		}
	}

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)
			return nil, toolErr
		}
		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())
		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
		}
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}
