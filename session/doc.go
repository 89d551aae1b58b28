// Package session manages the table of live conversational sessions: one
// state-machine instance per session, keyed by session id, with a per-session
// turn lock so turns within a session never interleave while sessions remain
// fully concurrent with each other.
package session
