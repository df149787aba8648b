package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/raglegal/api/internal/client"
	"github.com/raglegal/api/internal/model"
)

// The degraded answer shown to chat users when the AI service stays
// unreachable through every retry.
const aiUnavailableMessage = "AI service unavailable, please try later."

// retryInfo reports the attempt position of the running task. Swapped
// out in tests, since asynq only populates it inside a worker server.
var retryInfo = func(ctx context.Context) (retried, maxRetry int, ok bool) {
	retried, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	return retried, maxRetry, ok1 && ok2
}

// SessionTranscript is what the query worker needs from the chat store.
type SessionTranscript interface {
	GetSession(ctx context.Context, id int64) (*model.ChatSession, error)
	InsertMessage(ctx context.Context, msg *model.ChatMessage) error
	UpdateSessionTitle(ctx context.Context, id int64, title string) error
}

// TitleGenerator produces a short session title from opening messages.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, messages []string) string
}

// QueryWorker orchestrates one chat question: call the external
// answering service, persist the bot reply, and always leave a
// well-formed answer shape in the result store. Exhausted retries end
// the job as SUCCESS carrying a soft error payload, so polling clients
// never see a raw failure for a chat question.
type QueryWorker struct {
	ai     client.AIQuerier
	chats  SessionTranscript
	titles TitleGenerator
}

func NewQueryWorker(ai client.AIQuerier, chats SessionTranscript, titles TitleGenerator) *QueryWorker {
	return &QueryWorker{
		ai:     ai,
		chats:  chats,
		titles: titles,
	}
}

// ProcessTask handles one query_ai task.
func (w *QueryWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.QueryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid query payload: %v: %w", err, asynq.SkipRetry)
	}

	result, err := w.ai.Query(ctx, payload.Question, payload.ChatHistory)
	if err != nil {
		log.Printf("AI query failed for session %d: %v", payload.SessionID, err)

		if retried, maxRetry, ok := retryInfo(ctx); !ok || retried >= maxRetry {
			// Out of attempts: a degraded answer is still an answer.
			writeResult(t, &model.AIResponse{Error: aiUnavailableMessage})
			return nil
		}
		return fmt.Errorf("AI query for session %d: %w", payload.SessionID, err)
	}

	// The answer is the job's deliverable; the transcript write is not.
	// A persistence failure here is logged and swallowed so the client
	// still gets the answer.
	if result.Answer != "" {
		msg := &model.ChatMessage{
			SessionID: payload.SessionID,
			Sender:    model.SenderBot,
			Content:   result.Answer,
		}
		if err := w.chats.InsertMessage(ctx, msg); err != nil {
			log.Printf("Failed to save bot message for session %d: %v", payload.SessionID, err)
		}

		w.maybeSetTitle(ctx, payload.SessionID, payload.Question, result.Answer)
	}

	writeResult(t, result)
	return nil
}

// maybeSetTitle generates a session title after the first exchange.
// Best effort only; never affects the job outcome.
func (w *QueryWorker) maybeSetTitle(ctx context.Context, sessionID int64, question, answer string) {
	sess, err := w.chats.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("Failed to load session %d for titling: %v", sessionID, err)
		return
	}
	if sess.Title != "" && sess.Title != model.DefaultSessionTitle {
		return
	}

	title := w.titles.GenerateTitle(ctx, []string{question, answer})
	if err := w.chats.UpdateSessionTitle(ctx, sessionID, title); err != nil {
		log.Printf("Failed to set title for session %d: %v", sessionID, err)
	}
}
