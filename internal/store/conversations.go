package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxTurns is how many turns a conversation keeps after trimming.
const MaxTurns = 100

func (s *SQLiteStore) CreateConversation(label string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{ID: uuid.NewString(), Label: label, CreatedAt: now, UpdatedAt: now}

	_, err := s.db.Exec(
		"INSERT INTO conversations (id, label, created_at, updated_at) VALUES (?, ?, ?, ?)",
		conv.ID, conv.Label, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns (nil, nil) when id is unknown.
func (s *SQLiteStore) GetConversation(id string) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow("SELECT id, label, created_at, updated_at FROM conversations WHERE id = ?", id).
		Scan(&conv.ID, &conv.Label, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns conversations, most recently active first.
func (s *SQLiteStore) ListConversations() ([]Conversation, error) {
	rows, err := s.db.Query("SELECT id, label, created_at, updated_at FROM conversations ORDER BY updated_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.Label, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (s *SQLiteStore) RenameConversation(id, label string) error {
	res, err := s.db.Exec("UPDATE conversations SET label = ? WHERE id = ?", label, id)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteConversation removes the conversation and all of its turns.
func (s *SQLiteStore) DeleteConversation(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM conversation_turns WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	res, err := tx.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// AppendTurn stores a turn and bumps the conversation's updated_at.
func (s *SQLiteStore) AppendTurn(conversationID, role, content string) (*Turn, error) {
	turns, err := s.appendTurns(conversationID, Turn{Role: role, Content: content})
	if err != nil {
		return nil, err
	}
	return &turns[0], nil
}

// AppendExchange stores a user prompt and the model's reply in one transaction,
// so the history never holds a user turn without its answer.
func (s *SQLiteStore) AppendExchange(conversationID, prompt, reply string) (user, model *Turn, err error) {
	turns, err := s.appendTurns(conversationID,
		Turn{Role: RoleUser, Content: prompt},
		Turn{Role: RoleModel, Content: reply},
	)
	if err != nil {
		return nil, nil, err
	}
	return &turns[0], &turns[1], nil
}

func (s *SQLiteStore) appendTurns(conversationID string, turns ...Turn) ([]Turn, error) {
	now := time.Now().UTC()
	for i := range turns {
		if turns[i].Role != RoleUser && turns[i].Role != RoleModel {
			return nil, fmt.Errorf("invalid turn role %q", turns[i].Role)
		}
		turns[i].ID = uuid.NewString()
		turns[i].ConversationID = conversationID
		turns[i].Timestamp = now
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE conversations SET updated_at = ? WHERE id = ?", now, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	for _, t := range turns {
		_, err = tx.Exec(
			"INSERT INTO conversation_turns (id, conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)",
			t.ID, t.ConversationID, t.Role, t.Content, t.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s turn: %w", t.Role, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turns: %w", err)
	}
	return turns, nil
}

// Turns returns the last limit turns of a conversation, oldest first.
// limit <= 0 returns all of them.
func (s *SQLiteStore) Turns(conversationID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := `
        SELECT id, conversation_id, role, content, timestamp FROM (
            SELECT rowid AS seq, id, conversation_id, role, content, timestamp
            FROM conversation_turns
            WHERE conversation_id = ?
            ORDER BY rowid DESC
            LIMIT ?
        ) ORDER BY seq ASC
    `
	rows, err := s.db.Query(query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// TrimTurns deletes all but the newest keep turns and reports how many went.
func (s *SQLiteStore) TrimTurns(conversationID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
        DELETE FROM conversation_turns
        WHERE conversation_id = ?
          AND rowid NOT IN (
            SELECT rowid FROM conversation_turns
            WHERE conversation_id = ?
            ORDER BY rowid DESC
            LIMIT ?
          )`, conversationID, conversationID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim turns: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
