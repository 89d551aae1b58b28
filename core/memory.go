package core

import "time"

// WorkingMemory holds short-lived turn context. Keys are overwritten each
// turn; untouched keys survive until a later update names them.
type WorkingMemory map[string]any

// EpisodicMemory is the historical interaction log. InteractionCount grows by
// exactly one per memory update, regardless of payload size. Topics is an
// append-only multiset: duplicates are kept and order is irrelevant.
type EpisodicMemory struct {
	InteractionCount int      `json:"interaction_count"`
	Topics           []string `json:"topics"`
	SuccessfulTools  []string `json:"successful_tools"`
}

// SemanticMemory accumulates durable knowledge about the user: preferences
// merge shallowly, patterns and goals append.
type SemanticMemory struct {
	Preferences        map[string]any `json:"preferences"`
	SuccessfulPatterns []string       `json:"successful_patterns"`
	FinancialGoals     []string       `json:"financial_goals"`
}

// UserMemory is the tiered per-user memory document. A document always
// exists once accessed: stores initialize an empty-shaped record on first
// read. Writes are last-writer-wins per field group; acceptable while turns
// within a session are serialized (concurrent multi-device writers for one
// user would need per-field versioning).
type UserMemory struct {
	UserID      string         `json:"user_id"`
	Working     WorkingMemory  `json:"working_memory"`
	Episodic    EpisodicMemory `json:"episodic_memory"`
	Semantic    SemanticMemory `json:"semantic_memory"`
	Created     time.Time      `json:"created_at"`
	LastUpdated time.Time      `json:"last_updated"`
}

// NewUserMemory returns the empty-shaped document for a user: zero
// interaction count, empty topics, empty preferences.
func NewUserMemory(userID string) *UserMemory {
	now := time.Now().UTC()
	return &UserMemory{
		UserID:   userID,
		Working:  WorkingMemory{},
		Episodic: EpisodicMemory{Topics: []string{}, SuccessfulTools: []string{}},
		Semantic: SemanticMemory{
			Preferences:        map[string]any{},
			SuccessfulPatterns: []string{},
			FinancialGoals:     []string{},
		},
		Created:     now,
		LastUpdated: now,
	}
}

// MemoryUpdate is a partial write against a UserMemory document. Nil field
// groups are left untouched.
type MemoryUpdate struct {
	Working  WorkingMemory   `json:"working_memory,omitempty"`
	Episodic *EpisodicUpdate `json:"episodic_memory,omitempty"`
	Semantic *SemanticUpdate `json:"semantic_memory,omitempty"`
}

// EpisodicUpdate appends topics and successful tools. The interaction count
// is never supplied by callers; Apply increments it once per update call.
type EpisodicUpdate struct {
	Topics          []string `json:"topics,omitempty"`
	SuccessfulTools []string `json:"successful_tools,omitempty"`
}

// SemanticUpdate merges preferences and appends patterns and goals.
type SemanticUpdate struct {
	Preferences        map[string]any `json:"preferences,omitempty"`
	SuccessfulPatterns []string       `json:"successful_patterns,omitempty"`
	FinancialGoals     []string       `json:"financial_goals,omitempty"`
}

// Apply folds an update into the document in place. The merge policy is the
// single source of truth shared by every store backend:
//
//   - working memory: shallow merge, new keys overwrite same-named old keys
//   - episodic interaction count: +1 per Apply call, payload size irrelevant
//   - episodic topics / successful tools: appended, duplicates kept
//   - semantic preferences: shallow merge; patterns and goals appended
//
// Shallow merges of non-overlapping key sets are associative: applying update
// A then B equals applying a single combined update.
func (m *UserMemory) Apply(u MemoryUpdate) {
	for k, v := range u.Working {
		m.Working[k] = v
	}
	m.Episodic.InteractionCount++
	if u.Episodic != nil {
		m.Episodic.Topics = append(m.Episodic.Topics, u.Episodic.Topics...)
		m.Episodic.SuccessfulTools = append(m.Episodic.SuccessfulTools, u.Episodic.SuccessfulTools...)
	}
	if u.Semantic != nil {
		for k, v := range u.Semantic.Preferences {
			m.Semantic.Preferences[k] = v
		}
		m.Semantic.SuccessfulPatterns = append(m.Semantic.SuccessfulPatterns, u.Semantic.SuccessfulPatterns...)
		m.Semantic.FinancialGoals = append(m.Semantic.FinancialGoals, u.Semantic.FinancialGoals...)
	}
	m.LastUpdated = time.Now().UTC()
}

// Clone returns a deep copy safe for handing to callers.
func (m *UserMemory) Clone() *UserMemory {
	c := &UserMemory{
		UserID:      m.UserID,
		Working:     make(WorkingMemory, len(m.Working)),
		Created:     m.Created,
		LastUpdated: m.LastUpdated,
	}
	for k, v := range m.Working {
		c.Working[k] = v
	}
	c.Episodic = EpisodicMemory{
		InteractionCount: m.Episodic.InteractionCount,
		Topics:           append([]string{}, m.Episodic.Topics...),
		SuccessfulTools:  append([]string{}, m.Episodic.SuccessfulTools...),
	}
	c.Semantic = SemanticMemory{
		Preferences:        make(map[string]any, len(m.Semantic.Preferences)),
		SuccessfulPatterns: append([]string{}, m.Semantic.SuccessfulPatterns...),
		FinancialGoals:     append([]string{}, m.Semantic.FinancialGoals...),
	}
	for k, v := range m.Semantic.Preferences {
		c.Semantic.Preferences[k] = v
	}
	return c
}
