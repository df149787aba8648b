package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/raglegal/api/internal/model"
)

type stubAI struct {
	resp *model.AIResponse
	err  error
}

func (s *stubAI) Query(_ context.Context, _ string, _ []model.HistoryItem) (*model.AIResponse, error) {
	return s.resp, s.err
}

func (s *stubAI) IsConfigured() bool { return true }

type stubTranscript struct {
	session    *model.ChatSession
	sessionErr error
	insertErr  error

	inserted []model.ChatMessage
	titleSet string
}

func (s *stubTranscript) GetSession(_ context.Context, _ int64) (*model.ChatSession, error) {
	return s.session, s.sessionErr
}

func (s *stubTranscript) InsertMessage(_ context.Context, msg *model.ChatMessage) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, *msg)
	return nil
}

func (s *stubTranscript) UpdateSessionTitle(_ context.Context, _ int64, title string) error {
	s.titleSet = title
	return nil
}

type stubTitler struct {
	title string
}

func (s *stubTitler) GenerateTitle(_ context.Context, _ []string) string {
	return s.title
}

func setRetryInfo(t *testing.T, retried, maxRetry int, ok bool) {
	t.Helper()
	orig := retryInfo
	retryInfo = func(context.Context) (int, int, bool) {
		return retried, maxRetry, ok
	}
	t.Cleanup(func() { retryInfo = orig })
}

func queryTask(t *testing.T, payload model.QueryPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask("chat:query", data)
}

func TestQueryWorkerSuccessPersistsBotMessage(t *testing.T) {
	ai := &stubAI{resp: &model.AIResponse{Answer: "Article 12 applies."}}
	chats := &stubTranscript{session: &model.ChatSession{ID: 5, Title: model.DefaultSessionTitle}}
	w := NewQueryWorker(ai, chats, &stubTitler{title: "Scope of Article 12"})

	err := w.ProcessTask(context.Background(), queryTask(t, model.QueryPayload{
		SessionID: 5,
		Question:  "Does Article 12 apply here?",
	}))
	if err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if len(chats.inserted) != 1 {
		t.Fatalf("inserted %d messages, want 1", len(chats.inserted))
	}
	got := chats.inserted[0]
	if got.Sender != model.SenderBot {
		t.Errorf("message sender = %q, want bot", got.Sender)
	}
	if got.Content != "Article 12 applies." {
		t.Errorf("message content = %q", got.Content)
	}
	if chats.titleSet != "Scope of Article 12" {
		t.Errorf("session title = %q, want generated title", chats.titleSet)
	}
}

func TestQueryWorkerKeepsCustomTitle(t *testing.T) {
	ai := &stubAI{resp: &model.AIResponse{Answer: "Yes."}}
	chats := &stubTranscript{session: &model.ChatSession{ID: 5, Title: "Land registry dispute"}}
	w := NewQueryWorker(ai, chats, &stubTitler{title: "Replacement"})

	if err := w.ProcessTask(context.Background(), queryTask(t, model.QueryPayload{SessionID: 5, Question: "q"})); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if chats.titleSet != "" {
		t.Errorf("existing title overwritten with %q", chats.titleSet)
	}
}

func TestQueryWorkerRetriesWhileAttemptsRemain(t *testing.T) {
	ai := &stubAI{err: errors.New("connect: connection refused")}
	chats := &stubTranscript{}
	w := NewQueryWorker(ai, chats, &stubTitler{})
	setRetryInfo(t, 1, 3, true)

	err := w.ProcessTask(context.Background(), queryTask(t, model.QueryPayload{SessionID: 5, Question: "q"}))
	if err == nil {
		t.Fatal("expected retryable error while attempts remain")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Errorf("AI outage must stay retryable, got %v", err)
	}
	if len(chats.inserted) != 0 {
		t.Errorf("no bot message should be written on a failed attempt")
	}
}

func TestQueryWorkerExhaustionSucceedsWithSoftError(t *testing.T) {
	ai := &stubAI{err: errors.New("connect: connection refused")}
	chats := &stubTranscript{}
	w := NewQueryWorker(ai, chats, &stubTitler{})
	setRetryInfo(t, 3, 3, true)

	// Out of attempts the job completes normally; the degraded answer
	// lives in the result payload, not in a task failure.
	err := w.ProcessTask(context.Background(), queryTask(t, model.QueryPayload{SessionID: 5, Question: "q"}))
	if err != nil {
		t.Fatalf("exhausted query must complete, got %v", err)
	}
	if len(chats.inserted) != 0 {
		t.Errorf("degraded answer must not be stored in the transcript")
	}
}

func TestQueryWorkerSwallowsTranscriptFailure(t *testing.T) {
	ai := &stubAI{resp: &model.AIResponse{Answer: "Yes."}}
	chats := &stubTranscript{
		session:   &model.ChatSession{ID: 5, Title: model.DefaultSessionTitle},
		insertErr: errors.New("deadlock detected"),
	}
	w := NewQueryWorker(ai, chats, &stubTitler{title: "t"})

	// The answer is the deliverable; losing the transcript copy is logged
	// but must not fail or retry the job.
	if err := w.ProcessTask(context.Background(), queryTask(t, model.QueryPayload{SessionID: 5, Question: "q"})); err != nil {
		t.Fatalf("transcript failure must not fail the job, got %v", err)
	}
}

func TestQueryWorkerBadPayloadSkipsRetry(t *testing.T) {
	w := NewQueryWorker(&stubAI{}, &stubTranscript{}, &stubTitler{})

	err := w.ProcessTask(context.Background(), asynq.NewTask("chat:query", []byte("{")))
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("error %v should wrap asynq.SkipRetry", err)
	}
}
