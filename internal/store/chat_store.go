package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/raglegal/api/internal/model"
)

// ChatStore persists chat sessions and their transcripts.
type ChatStore struct {
	db *sqlx.DB
}

func NewChatStore(db *sqlx.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) CreateSession(ctx context.Context, sess *model.ChatSession) error {
	const query = `
		INSERT INTO chat_sessions (user_id, title)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query, sess.UserID, sess.Title).
		Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *ChatStore) GetSession(ctx context.Context, id int64) (*model.ChatSession, error) {
	const query = `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1`

	var sess model.ChatSession
	if err := s.db.GetContext(ctx, &sess, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

func (s *ChatStore) ListSessionsByUser(ctx context.Context, userID int64) ([]model.ChatSession, error) {
	const query = `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	var sessions []model.ChatSession
	if err := s.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (s *ChatStore) DeleteSession(ctx context.Context, id int64) error {
	// messages go with the session via ON DELETE CASCADE
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSessionTitle sets a generated title, but never overwrites one the
// user picked or a previous generation wrote.
func (s *ChatStore) UpdateSessionTitle(ctx context.Context, id int64, title string) error {
	const query = `
		UPDATE chat_sessions
		SET title = $1, updated_at = NOW()
		WHERE id = $2 AND (title = '' OR title = $3)`

	if _, err := s.db.ExecContext(ctx, query, title, id, model.DefaultSessionTitle); err != nil {
		return fmt.Errorf("failed to update session title: %w", err)
	}
	return nil
}

func (s *ChatStore) InsertMessage(ctx context.Context, msg *model.ChatMessage) error {
	const query = `
		INSERT INTO chat_messages (session_id, sender, content)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp`

	err := s.db.QueryRowxContext(ctx, query, msg.SessionID, msg.Sender, msg.Content).
		Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`, msg.SessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (s *ChatStore) ListMessages(ctx context.Context, sessionID int64) ([]model.ChatMessage, error) {
	const query = `
		SELECT id, session_id, sender, content, timestamp
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY timestamp, id`

	var msgs []model.ChatMessage
	if err := s.db.SelectContext(ctx, &msgs, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
