package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another user")
)

// ChatRepository is the persistence contract for sessions and messages.
type ChatRepository interface {
	CreateSession(ctx context.Context, sess *model.ChatSession) error
	GetSession(ctx context.Context, id int64) (*model.ChatSession, error)
	ListSessionsByUser(ctx context.Context, userID int64) ([]model.ChatSession, error)
	DeleteSession(ctx context.Context, id int64) error
	InsertMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, sessionID int64) ([]model.ChatMessage, error)
}

// ChatService manages sessions and hands questions to the job queue.
type ChatService struct {
	chats ChatRepository
	tasks TaskEnqueuer
}

func NewChatService(chats ChatRepository, tasks TaskEnqueuer) *ChatService {
	return &ChatService{
		chats: chats,
		tasks: tasks,
	}
}

// CreateSession opens a new chat session for the user.
func (s *ChatService) CreateSession(ctx context.Context, userID int64, title string) (*model.ChatSession, error) {
	if title == "" {
		title = model.DefaultSessionTitle
	}
	sess := &model.ChatSession{
		UserID: userID,
		Title:  title,
	}
	if err := s.chats.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns the user's sessions, most recently active first.
func (s *ChatService) ListSessions(ctx context.Context, userID int64) ([]model.ChatSession, error) {
	return s.chats.ListSessionsByUser(ctx, userID)
}

// GetMessages returns the ordered transcript of an owned session.
func (s *ChatService) GetMessages(ctx context.Context, userID, sessionID int64) ([]model.ChatMessage, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, sessionID)
}

// DeleteSession removes an owned session and its transcript.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID int64) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.chats.DeleteSession(ctx, sessionID)
}

// PostMessage durably stores the user's question, then enqueues the AI
// query with the prior transcript as history. The question is on disk
// before the job exists, so the AI call never runs ahead of it. The
// returned task id is what the client polls.
func (s *ChatService) PostMessage(ctx context.Context, userID, sessionID int64, content string) (*model.PostMessageResponse, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	// History is the transcript before this question.
	prior, err := s.chats.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]model.HistoryItem, 0, len(prior))
	for _, m := range prior {
		role := "user"
		if m.Sender == model.SenderBot {
			role = "assistant"
		}
		history = append(history, model.HistoryItem{Role: role, Content: m.Content})
	}

	msg := &model.ChatMessage{
		SessionID: sessionID,
		Sender:    model.SenderUser,
		Content:   content,
	}
	if err := s.chats.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store question: %w", err)
	}

	taskID, err := s.tasks.EnqueueQuery(ctx, &model.QueryPayload{
		SessionID:   sessionID,
		Question:    content,
		ChatHistory: history,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue query: %w", err)
	}

	return &model.PostMessageResponse{
		SessionID: sessionID,
		MessageID: msg.ID,
		TaskID:    taskID,
		Status:    model.TaskStatusPending,
	}, nil
}

func (s *ChatService) ownedSession(ctx context.Context, userID, sessionID int64) (*model.ChatSession, error) {
	sess, err := s.chats.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	return sess, nil
}
