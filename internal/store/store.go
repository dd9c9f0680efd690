// Package store persists watchlists and conversation history in SQLite.
// This is thin CRUD; all market data stays in memory and is never written
// here.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

// Watchlist is a named set of symbols owned by a user.
type Watchlist struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Symbols   []string  `json:"symbols"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation groups the messages of one chat session.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one turn of a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // "user" or "assistant"
	Content        string    `json:"content"`
	Intent         string    `json:"intent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store wraps the SQLite handle. Safe for concurrent use; database/sql
// serializes access to the single connection SQLite allows for writes.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS watchlists (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE(user_id, name)
);
CREATE TABLE IF NOT EXISTS watchlist_symbols (
	watchlist_id TEXT NOT NULL REFERENCES watchlists(id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (watchlist_id, symbol)
);
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	intent TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
CREATE INDEX IF NOT EXISTS idx_watchlists_user ON watchlists(user_id);
`

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. Use ":memory:" for tests.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateWatchlist inserts a watchlist with its symbols in one transaction.
func (s *Store) CreateWatchlist(ctx context.Context, userID, name string, symbols []string) (*Watchlist, error) {
	w := &Watchlist{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Symbols:   symbols,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO watchlists (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		w.ID, w.UserID, w.Name, w.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting watchlist: %w", err)
	}
	for i, sym := range symbols {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO watchlist_symbols (watchlist_id, symbol, position) VALUES (?, ?, ?)`,
			w.ID, sym, i); err != nil {
			return nil, fmt.Errorf("inserting symbol %s: %w", sym, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// GetWatchlist loads one watchlist with its symbols in stored order.
func (s *Store) GetWatchlist(ctx context.Context, id string) (*Watchlist, error) {
	w := &Watchlist{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, created_at FROM watchlists WHERE id = ?`, id).
		Scan(&w.UserID, &w.Name, &w.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol FROM watchlist_symbols WHERE watchlist_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		w.Symbols = append(w.Symbols, sym)
	}
	return w, rows.Err()
}

// ListWatchlists returns all watchlists for a user, newest first, with
// symbols populated.
func (s *Store) ListWatchlists(ctx context.Context, userID string) ([]*Watchlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM watchlists WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lists := make([]*Watchlist, 0, len(ids))
	for _, id := range ids {
		w, err := s.GetWatchlist(ctx, id)
		if err != nil {
			return nil, err
		}
		lists = append(lists, w)
	}
	return lists, nil
}

// UpdateWatchlistSymbols replaces the symbol set of a watchlist.
func (s *Store) UpdateWatchlistSymbols(ctx context.Context, id string, symbols []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist_symbols WHERE watchlist_id = ?`, id); err != nil {
		return err
	}
	for i, sym := range symbols {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO watchlist_symbols (watchlist_id, symbol, position) VALUES (?, ?, ?)`,
			id, sym, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteWatchlist removes a watchlist and, via cascade, its symbols.
func (s *Store) DeleteWatchlist(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateConversation starts a new conversation.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (*Conversation, error) {
	c := &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}
	return c, nil
}

// AppendMessage records one turn of a conversation.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content, intent string) (*Message, error) {
	m := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Intent:         intent,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, intent, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.Intent, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return m, nil
}

// Messages returns a conversation's messages oldest first.
func (s *Store) Messages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, COALESCE(intent, ''), created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m := &Message{ConversationID: conversationID}
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Intent, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
