package model

// IngestPayload is the input of an ingest_document task.
type IngestPayload struct {
	FilePath   string `json:"filePath"`
	DocumentID int64  `json:"documentId"`
}

// QueryPayload is the input of a query_ai task.
type QueryPayload struct {
	SessionID   int64         `json:"sessionId"`
	Question    string        `json:"question"`
	ChatHistory []HistoryItem `json:"chatHistory"`
}

// IngestResult is written to the task result store by the ingestion worker.
// Status is "processed" or "skipped".
type IngestResult struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	DocumentID int64  `json:"documentId"`
}

// SourceItem is a retrieval citation returned by the AI service.
type SourceItem struct {
	Source  string `json:"source"`
	Preview string `json:"preview"`
}

// AIResponse is the answer shape of the external RAG service. When the
// service is unreachable after all retries, the worker stores the same
// shape with only Error set, so polling clients always get well-formed JSON.
type AIResponse struct {
	Answer  string       `json:"answer,omitempty"`
	Sources []SourceItem `json:"sources,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// TaskStatusResponse is the polling view of a background task.
type TaskStatusResponse struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
	Answer string     `json:"answer,omitempty"`
	Error  string     `json:"error,omitempty"`
}
