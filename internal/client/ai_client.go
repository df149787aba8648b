package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raglegal/api/internal/config"
	"github.com/raglegal/api/internal/model"
)

// AIQuerier is the contract the chat worker needs from the answering service.
type AIQuerier interface {
	Query(ctx context.Context, question string, history []model.HistoryItem) (*model.AIResponse, error)
	IsConfigured() bool
}

// AIClient calls the external RAG answering service. The service is
// treated as unreliable: any transport error, non-2xx status or
// malformed body is returned as an error for the retry layer to handle.
type AIClient struct {
	httpClient *http.Client
	url        string
}

type aiQueryRequest struct {
	Question    string              `json:"question"`
	ChatHistory []model.HistoryItem `json:"chat_history"`
}

// NewAIClient creates a client for the answering service.
func NewAIClient(cfg *config.AIConfig) *AIClient {
	return &AIClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		url: cfg.URL,
	}
}

// Query posts a question plus history and parses the answer payload.
func (c *AIClient) Query(ctx context.Context, question string, history []model.HistoryItem) (*model.AIResponse, error) {
	if history == nil {
		history = []model.HistoryItem{}
	}
	bodyBytes, err := json.Marshal(aiQueryRequest{
		Question:    question,
		ChatHistory: history,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("AI service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var aiResp model.AIResponse
	if err := json.Unmarshal(respBody, &aiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &aiResp, nil
}

// IsConfigured returns true if the client has a target URL.
func (c *AIClient) IsConfigured() bool {
	return c.url != ""
}
