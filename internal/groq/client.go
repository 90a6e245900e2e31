package groq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conneroisu/groq-go"

	"reelsmith/internal/llm"
)

const Name = "groq"

type Options struct {
	APIKey       string
	Model        string
	SystemPrompt string
	// BaseURL overrides the API endpoint; it must end with a slash.
	BaseURL string
}

// Client is a text-only provider backed by Groq chat completions.
type Client struct {
	llm.Unsupported

	client       *groq.Client
	model        groq.ChatModel
	systemPrompt string
}

var _ llm.Service = (*Client)(nil)

func New(opts Options) (*Client, error) {
	if err := llm.RequireSettings(Name,
		llm.Setting{Name: "GROQ_API_KEY", Value: opts.APIKey},
		llm.Setting{Name: "model_name", Value: opts.Model},
	); err != nil {
		return nil, err
	}

	var clientOpts []groq.Opts
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, groq.WithBaseURL(opts.BaseURL))
	}

	client, err := groq.NewClient(opts.APIKey, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &Client{
		Unsupported:  llm.Unsupported{Provider: Name},
		client:       client,
		model:        groq.ChatModel(opts.Model),
		systemPrompt: opts.SystemPrompt,
	}, nil
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

	messages := make([]groq.ChatCompletionMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, groq.ChatCompletionMessage{Role: groq.RoleSystem, Content: c.systemPrompt})
	}
	messages = append(messages, groq.ChatCompletionMessage{Role: groq.RoleUser, Content: prompt})

	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response")
	}

	return content, nil
}
