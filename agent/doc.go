// Package agent exposes the conversational assistant facade: session
// creation, message handling, status and memory inspection.
//
// A turn flows memory read -> workflow selection -> tool execution or
// orchestration -> response synthesis -> memory write, with the session's
// agent state machine tracking each phase. Turns within one session are
// serialized; turns across sessions run concurrently.
package agent
