package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"reelsmith/internal/llm"
)

const (
	Name = "gemini"

	defaultLocation = "us-central1"
)

type Options struct {
	APIKey       string
	Model        string
	SystemPrompt string
	// Project selects the Vertex AI backend when no API key is set.
	Project  string
	Location string
	BaseURL  string
}

// Client is a text-only provider backed by Gemini models.
type Client struct {
	llm.Unsupported

	client       *genai.Client
	model        string
	systemPrompt string
}

var _ llm.Service = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	settings := []llm.Setting{{Name: "model_name", Value: opts.Model}}
	if opts.Project == "" {
		settings = append(settings, llm.Setting{Name: "GEMINI_API_KEY", Value: opts.APIKey})
	}
	if err := llm.RequireSettings(Name, settings...); err != nil {
		return nil, err
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: opts.BaseURL,
		},
	}
	if opts.APIKey == "" {
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = opts.Project
		cfg.Location = opts.Location
		if cfg.Location == "" {
			cfg.Location = defaultLocation
		}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		Unsupported:  llm.Unsupported{Provider: Name},
		client:       client,
		model:        opts.Model,
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

	var config *genai.GenerateContentConfig
	if c.systemPrompt != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: c.systemPrompt}},
			},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", fmt.Errorf("empty response")
	}

	return content, nil
}
