// Package memory implements the tiered conversational memory store: per-user
// working / episodic / semantic memory documents plus per-session message
// history. Two backends are provided, a process-local map for tests and
// ephemeral use, and a SQLite-backed store for durability. Both delegate
// merge semantics to core.UserMemory.Apply so the update policy is identical
// across backends.
package memory
