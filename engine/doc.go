// Package engine runs a workflow plan's tool-call steps.
//
// Calls sharing a parallel group run concurrently, bounded by the
// registry's max concurrency; distinct groups run in declared order with
// a barrier between them. Each call is independently time-bounded, and a
// failing call never aborts its siblings: partial success is a
// first-class outcome.
package engine
