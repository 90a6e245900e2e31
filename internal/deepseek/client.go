package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/llm"
	"reelsmith/pkg/httputil"
)

const (
	Name = "deepseek"

	baseURL        = "https://api.deepseek.com/v1/chat/completions"
	defaultTimeout = 30 * time.Second
	roleSystem     = "system"
	roleUser       = "user"
)

// Client is a text-only provider for the DeepSeek chat completions API.
type Client struct {
	llm.Unsupported

	apiKey       string
	httpClient   httputil.Doer
	model        string
	systemPrompt string
	baseURL      string
}

var _ llm.Service = (*Client)(nil)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	APIKey       string
	Model        string
	SystemPrompt string
	BaseURL      string
	Retry        httputil.RetryConfig
}

type request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type response struct {
	ID      string    `json:"id"`
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message Message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func New(opts Options) (*Client, error) {
	if err := llm.RequireSettings(Name,
		llm.Setting{Name: "DEEPSEEK_API_KEY", Value: opts.APIKey},
		llm.Setting{Name: "model_name", Value: opts.Model},
	); err != nil {
		return nil, err
	}

	c := &Client{
		Unsupported:  llm.Unsupported{Provider: Name},
		apiKey:       opts.APIKey,
		httpClient:   httputil.NewRetryClient(&http.Client{Timeout: defaultTimeout}, opts.Retry),
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		baseURL:      opts.BaseURL,
	}
	if c.baseURL == "" {
		c.baseURL = baseURL
	}
	return c, nil
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) Capabilities() llm.Capability {
	return llm.CapText
}

func (c *Client) GenerateContent(ctx context.Context, req llm.ContentRequest) (string, error) {
	prompt, err := req.Render()
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	slog.Debug("Generating content", "provider", Name, "model", c.model, "topic", req.Topic)

	data, err := json.Marshal(request{
		Model:    c.model,
		Messages: c.buildMessages(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, data)
	if err != nil {
		return "", err
	}

	content, err := c.parseResponse(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *Client) buildMessages(prompt string) []Message {
	messages := make([]Message, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, Message{Role: roleSystem, Content: c.systemPrompt})
	}
	return append(messages, Message{Role: roleUser, Content: prompt})
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error: %s: %s", resp.Status, string(body))
	}

	return body, nil
}

func (c *Client) parseResponse(data []byte) (string, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("deepseek error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}
