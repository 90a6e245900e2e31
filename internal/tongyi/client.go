package tongyi

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

	"reelsmith/internal/imagegen"
	"reelsmith/internal/llm"
	"reelsmith/pkg/httputil"
	"reelsmith/pkg/prompts"
)

const (
	Name = "tongyi"

	defaultBaseURL      = "https://dashscope.aliyuncs.com"
	defaultTimeout      = 60 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultTaskTimeout  = 5 * time.Minute

	textPath  = "/api/v1/services/aigc/text-generation/generation"
	imagePath = "/api/v1/services/aigc/text2image/image-synthesis"
	tasksPath = "/api/v1/tasks/"

	roleUser = "user"
)

type Options struct {
	APIKey       string
	Model        string
	ImageModel   string
	BaseURL      string
	PollInterval time.Duration
	TaskTimeout  time.Duration
	// ImagePrompt, when set, makes the client write its own image prompt from
	// the topic with its text model before generating.
	ImagePrompt *prompts.Template
	HTTPClient  *http.Client
}

// Client talks to Alibaba DashScope: qwen models for text and wanx for
// images.
type Client struct {
	apiKey       string
	model        string
	imageModel   string
	baseURL      string
	pollInterval time.Duration
	taskTimeout  time.Duration
	httpClient   httputil.Doer
	saver        *imagegen.Saver
}

var _ llm.Service = (*Client)(nil)

func New(opts Options, images imagegen.Deps) (*Client, error) {
	if err := llm.RequireSettings(Name,
		llm.Setting{Name: "DASHSCOPE_API_KEY", Value: opts.APIKey},
		llm.Setting{Name: "model_name", Value: opts.Model},
		llm.Setting{Name: "image_model", Value: opts.ImageModel},
	); err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		apiKey:       opts.APIKey,
		model:        opts.Model,
		imageModel:   opts.ImageModel,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		pollInterval: opts.PollInterval,
		taskTimeout:  opts.TaskTimeout,
		httpClient:   httputil.NewRetryClient(httpClient, httputil.DefaultRetryConfig()),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.taskTimeout <= 0 {
		c.taskTimeout = defaultTaskTimeout
	}

	var saverOpts []imagegen.Option
	if opts.ImagePrompt != nil {
		writer, err := llm.NewPromptWriter(c, opts.ImagePrompt)
		if err != nil {
			return nil, fmt.Errorf("tongyi image prompt: %w", err)
		}
		saverOpts = append(saverOpts, imagegen.WithPrompt(writer.ImagePrompt))
	}
	c.saver = images.Saver(Name, imageBackend{c}, saverOpts...)

	return c, nil
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) Capabilities() llm.Capability {
	return llm.CapText | llm.CapImage
}

func (c *Client) GenerateContent(ctx context.Context, req llm.ContentRequest) (string, error) {
	prompt, err := req.Render()
	if err != nil {
		return "", fmt.Errorf("tongyi generate content: %w", err)
	}

	slog.Debug("Generating content", "provider", Name, "model", c.model, "topic", req.Topic)

	body := textRequest{
		Model: c.model,
		Input: textInput{Messages: []message{{Role: roleUser, Content: prompt}}},
		Parameters: textParameters{
			ResultFormat: "message",
		},
	}

	var resp textResponse
	if err := c.post(ctx, textPath, body, false, &resp); err != nil {
		return "", fmt.Errorf("tongyi generate content: %w", err)
	}

	if len(resp.Output.Choices) == 0 {
		return "", fmt.Errorf("tongyi generate content: no response choices")
	}

	return strings.TrimSpace(resp.Output.Choices[0].Message.Content), nil
}

func (c *Client) GenerateAndSaveImage(ctx context.Context, req llm.ImageRequest) (*llm.ImageOutcome, error) {
	return c.saver.Save(ctx, req)
}

type imageBackend struct {
	c *Client
}

func (b imageBackend) Generate(ctx context.Context, spec imagegen.Spec) ([]string, error) {
	return b.c.synthesize(ctx, spec)
}

func (c *Client) synthesize(ctx context.Context, spec imagegen.Spec) ([]string, error) {
	body := imageRequest{
		Model: c.imageModel,
		Input: imageInput{Prompt: spec.Prompt},
		Parameters: imageParameters{
			Size: fmt.Sprintf("%d*%d", spec.Width, spec.Height),
			N:    spec.Count,
			Seed: spec.Seed,
		},
	}
	if spec.Mode == llm.ModeImageToImage {
		body.Input.RefImage = spec.SourceURL
		body.Parameters.RefStrength = spec.Scale
	}

	var submitted taskResponse
	if err := c.post(ctx, imagePath, body, true, &submitted); err != nil {
		return nil, fmt.Errorf("submit image task: %w", err)
	}
	if submitted.Output.TaskID == "" {
		return nil, &imagegen.RemoteError{Provider: Name, Code: submitted.Code, Message: "no task id returned"}
	}

	slog.Debug("Image task submitted", "provider", Name, "task_id", submitted.Output.TaskID)

	task, err := c.waitForTask(ctx, submitted.Output.TaskID)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(task.Results))
	for _, r := range task.Results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return urls, nil
}

func (c *Client) waitForTask(ctx context.Context, taskID string) (*taskOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	for {
		var resp taskResponse
		if err := c.get(ctx, tasksPath+taskID, &resp); err != nil {
			return nil, fmt.Errorf("poll image task: %w", err)
		}

		switch resp.Output.TaskStatus {
		case statusSucceeded:
			return &resp.Output, nil
		case statusFailed, statusCanceled, statusUnknown:
			return nil, &imagegen.RemoteError{
				Provider: Name,
				Code:     firstNonEmpty(resp.Output.Code, resp.Output.TaskStatus),
				Message:  resp.Output.Message,
			}
		}

		slog.Debug("Waiting for image task", "task_id", taskID, "status", resp.Output.TaskStatus)

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("poll image task %s: %w", taskID, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, async bool, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if async {
		req.Header.Set("X-DashScope-Async", "enable")
	}

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			return &imagegen.RemoteError{Provider: Name, Code: apiErr.Code, Message: apiErr.Message}
		}
		return &imagegen.RemoteError{Provider: Name, Code: fmt.Sprint(resp.StatusCode), Message: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
