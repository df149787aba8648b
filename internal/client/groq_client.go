package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/raglegal/api/internal/config"
)

const titleSystemPrompt = "You are an AI that writes short, descriptive titles for conversations."

// GroqClient handles the title-generation call against the Groq API.
type GroqClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	return &GroqClient{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// GenerateTitle produces a short session title (8-12 words) from the
// opening messages of a conversation. On any failure, or when the client
// is not configured, a simple local fallback is used instead.
func (c *GroqClient) GenerateTitle(ctx context.Context, messages []string) string {
	if !c.IsConfigured() {
		return fallbackTitle(messages)
	}

	if len(messages) > 5 {
		messages = messages[:5]
	}
	prompt := fmt.Sprintf(
		"Below is a conversation between a user and a legal AI assistant.\n"+
			"Write ONE concise title of about 8-12 words reflecting the topic.\n"+
			"No quotes, no trailing period.\n\nConversation:\n%s\n\nTitle:",
		strings.Join(messages, "\n"),
	)

	title, err := c.chatCompletion(ctx, titleSystemPrompt, prompt)
	if err != nil {
		return fallbackTitle(messages)
	}

	title = strings.Trim(strings.TrimSpace(title), "\"'“”‘’")
	if words := strings.Fields(title); len(words) > 12 {
		title = strings.Join(words[:12], " ")
	}
	if len(title) > 80 {
		title = strings.TrimSpace(title[:80])
	}
	if title == "" {
		return fallbackTitle(messages)
	}
	return title
}

func (c *GroqClient) chatCompletion(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.4,
		MaxTokens:   24,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// IsConfigured returns true if the client has an API key.
func (c *GroqClient) IsConfigured() bool {
	return c.apiKey != ""
}

var markdownLink = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
var whitespace = regexp.MustCompile(`\s+`)

// fallbackTitle builds a title from the first ~10 words of the
// conversation when no LLM is available.
func fallbackTitle(messages []string) string {
	text := strings.Join(messages, " ")
	if len(text) > 200 {
		text = text[:200]
	}
	text = markdownLink.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))

	words := strings.Fields(text)
	if len(words) > 10 {
		words = words[:10]
	}
	title := strings.Trim(strings.Join(words, " "), " .,:;!?-")
	if title == "" {
		return "Untitled"
	}
	return title
}
