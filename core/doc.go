// Package core provides the foundational domain types used across finvisor.
// It defines the vocabulary the surrounding packages exchange:
//
//   - Sessions (per-conversation containers with an observable agent state)
//   - Messages (immutable, timestamp-ordered chat history entries)
//   - Tool descriptors, calls and execution records
//   - Workflow plans (a closed set of five plan shapes)
//   - The tiered user-memory document and its merge semantics
//
// The package intentionally keeps implementation concerns (planning,
// execution, persistence, model providers) out of scope, exposing small
// types and interfaces so backends can be swapped without touching the
// orchestration logic.
package core
