// Package model defines the language model abstraction used by the
// workflow selector, the execution pipeline, and the orchestrator.
//
// A Model answers three questions for the agent: which tools to run for a
// turn (Plan), whether more work is needed mid-loop (NextStep), and how to
// phrase the final response (Synthesize). Provider adapters live in the
// openai and anthropic subpackages; MockModel supports deterministic tests.
package model
