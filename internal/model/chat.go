package model

import "time"

// DefaultSessionTitle marks a session whose title has not been set by
// the user or generated yet; the title generator only replaces this.
const DefaultSessionTitle = "Untitled session"

// ChatSession owns an ordered transcript of user/bot messages.
type ChatSession struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ChatMessage is one transcript entry, ordered by timestamp within a session.
type ChatMessage struct {
	ID        int64      `db:"id" json:"id"`
	SessionID int64      `db:"session_id" json:"sessionId"`
	Sender    SenderType `db:"sender" json:"sender"`
	Content   string     `db:"content" json:"content"`
	Timestamp time.Time  `db:"timestamp" json:"timestamp"`
}

// SessionCreateRequest creates a new chat session
type SessionCreateRequest struct {
	Title string `json:"title" validate:"omitempty,max=255"`
}

// PostMessageRequest submits a question to a session
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=8000"`
}

// PostMessageResponse acknowledges a queued question. The client polls
// /api/tasks/:taskId until the answer is ready.
type PostMessageResponse struct {
	SessionID int64      `json:"sessionId"`
	MessageID int64      `json:"messageId"`
	TaskID    string     `json:"taskId"`
	Status    TaskStatus `json:"status"`
}

// HistoryItem is one turn of conversation as sent to the AI service.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
