package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finvisor/finvisor/core"

	_ "modernc.org/sqlite"
)

const (
	memoryTable  = "user_memory"
	messageTable = "messages"
)

// SQLiteStore persists user memory and message history in a SQLite database.
// Documents are stored as JSON blobs (document-store semantics, no
// transactions required); messages get their own rows so history queries can
// use an index instead of decoding a growing document.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed store and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// OpenSQLiteStore opens (or creates) the database at path and ensures schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)
	return NewSQLiteStore(db)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT PRIMARY KEY,
			updated_at INTEGER NOT NULL,
			doc_json BLOB NOT NULL
		);`, memoryTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			ts INTEGER NOT NULL,
			metadata_json BLOB
		);`, messageTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_session_ts ON %s(session_id, ts);`,
			messageTable, messageTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetUserMemory returns the user's document, initializing and persisting the
// empty shape on first access.
func (s *SQLiteStore) GetUserMemory(ctx context.Context, userID string) (*core.UserMemory, error) {
	m, err := s.loadMemory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	m = core.NewUserMemory(userID)
	if err := s.storeMemory(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateUserMemory loads (or initializes) the document, applies the partial
// update under the shared merge policy and writes it back.
func (s *SQLiteStore) UpdateUserMemory(ctx context.Context, userID string, update core.MemoryUpdate) (*core.UserMemory, error) {
	m, err := s.loadMemory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = core.NewUserMemory(userID)
	}
	m.Apply(update)
	if err := s.storeMemory(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveMessage appends a message row.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg core.Message) error {
	var meta []byte
	if msg.Metadata != nil {
		var err error
		meta, err = json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("marshal message metadata: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, session_id, role, content, ts, metadata_json)
			VALUES (?, ?, ?, ?, ?, ?)`, messageTable),
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.Timestamp.UnixNano(), meta)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetConversationHistory fetches the newest limit rows and reverses them so
// callers always receive chronological (oldest-first) order.
func (s *SQLiteStore) GetConversationHistory(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	q := fmt.Sprintf(`SELECT id, role, content, ts, metadata_json FROM %s
		WHERE session_id = ? ORDER BY ts DESC`, messageTable)
	args := []any{sessionID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var newestFirst []core.Message
	for rows.Next() {
		var (
			msg  core.Message
			ts   int64
			meta []byte
		)
		if err := rows.Scan(&msg.ID, (*string)(&msg.Role), &msg.Content, &ts, &meta); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.SessionID = sessionID
		msg.Timestamp = time.Unix(0, ts).UTC()
		if len(meta) > 0 {
			var md core.MessageMetadata
			if err := json.Unmarshal(meta, &md); err != nil {
				return nil, fmt.Errorf("decode message metadata: %w", err)
			}
			msg.Metadata = &md
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}

func (s *SQLiteStore) loadMemory(ctx context.Context, userID string) (*core.UserMemory, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc_json FROM %s WHERE user_id = ?`, memoryTable), userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user memory: %w", err)
	}
	var m core.UserMemory
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("decode user memory: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStore) storeMemory(ctx context.Context, m *core.UserMemory) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal user memory: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, updated_at, doc_json) VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET updated_at=excluded.updated_at, doc_json=excluded.doc_json`,
			memoryTable),
		m.UserID, m.LastUpdated.UnixNano(), doc)
	if err != nil {
		return fmt.Errorf("store user memory: %w", err)
	}
	return nil
}
