package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/raglegal/api/internal/config"
	"github.com/raglegal/api/internal/model"
)

// Task types and their queues. Ingestion and chat queries run on
// separate queues so the two workloads scale independently.
const (
	TaskTypeIngest = "document:ingest"
	TaskTypeQuery  = "chat:query"

	QueueIngest = "ingest"
	QueueChat   = "chat"
)

// TaskEnqueuer is the submit side of the job transport as seen by the
// document and chat services.
type TaskEnqueuer interface {
	EnqueueIngest(ctx context.Context, payload *model.IngestPayload) (string, error)
	EnqueueQuery(ctx context.Context, payload *model.QueryPayload) (string, error)
}

// TaskService is the job transport: fire-and-forget submission over
// asynq plus a polling read path through the asynq inspector. Results of
// finished tasks are retained for a bounded window and then dropped; a
// poll after expiry reads as PENDING, never as an error.
type TaskService struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	maxRetry  int
	retention time.Duration
}

func NewTaskService(client *asynq.Client, inspector *asynq.Inspector, cfg *config.TasksConfig) *TaskService {
	return &TaskService{
		client:    client,
		inspector: inspector,
		maxRetry:  cfg.MaxRetry,
		retention: time.Duration(cfg.ResultTTL) * time.Minute,
	}
}

// LinearBackoff returns the retry delay policy: attempt n waits n*base.
func LinearBackoff(base time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		return time.Duration(n) * base
	}
}

// EnqueueIngest submits an ingest_document job and returns its id.
// Submission never performs the work itself.
func (s *TaskService) EnqueueIngest(ctx context.Context, payload *model.IngestPayload) (string, error) {
	return s.enqueue(ctx, TaskTypeIngest, QueueIngest, payload)
}

// EnqueueQuery submits a query_ai job and returns its id.
func (s *TaskService) EnqueueQuery(ctx context.Context, payload *model.QueryPayload) (string, error) {
	return s.enqueue(ctx, TaskTypeQuery, QueueChat, payload)
}

func (s *TaskService) enqueue(ctx context.Context, taskType, queue string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	info, err := s.client.EnqueueContext(ctx, asynq.NewTask(taskType, data),
		asynq.Queue(queue),
		asynq.MaxRetry(s.maxRetry),
		asynq.Retention(s.retention),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	return info.ID, nil
}

// GetStatus maps a task id to the normalized polling view. Ids the
// transport no longer knows about (wrong id, expired result) report as
// PENDING rather than an error.
func (s *TaskService) GetStatus(ctx context.Context, taskID string) *model.TaskStatusResponse {
	for _, queue := range []string{QueueChat, QueueIngest} {
		info, err := s.inspector.GetTaskInfo(queue, taskID)
		if err != nil {
			continue // not in this queue, or queue unknown
		}
		return statusFromTaskInfo(info)
	}

	return &model.TaskStatusResponse{
		TaskID: taskID,
		Status: model.TaskStatusPending,
	}
}

func statusFromTaskInfo(info *asynq.TaskInfo) *model.TaskStatusResponse {
	resp := &model.TaskStatusResponse{TaskID: info.ID}

	switch info.State {
	case asynq.TaskStateActive, asynq.TaskStateRetry:
		resp.Status = model.TaskStatusStarted
	case asynq.TaskStateCompleted:
		resp.Status = model.TaskStatusSuccess
		// Surface answer/error fields when the result carries them, so a
		// chat client always sees a well-formed answer shape.
		if len(info.Result) > 0 {
			var result model.AIResponse
			if err := json.Unmarshal(info.Result, &result); err == nil {
				resp.Answer = result.Answer
				resp.Error = result.Error
			}
		}
	case asynq.TaskStateArchived:
		resp.Status = model.TaskStatusFailure
		resp.Error = info.LastErr
	default: // pending, scheduled, aggregating
		resp.Status = model.TaskStatusPending
	}

	return resp
}
