// Package orchestrator drives the iterative plan-act-evaluate loop used
// by the orchestrator_workers and prompt_chaining workflows.
//
// Each iteration asks the model for the next action given the accumulated
// tool results, delegates requested calls to the execution engine, and
// repeats. The loop is an explicit bounded iteration with a context
// accumulator threaded through, so the cap and the cancellation check are
// structurally enforced rather than relying on the model to stop.
package orchestrator
