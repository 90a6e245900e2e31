package volcengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/volcengine/volc-sdk-golang/service/visual"

	"reelsmith/internal/imagegen"
	"reelsmith/internal/llm"
)

const (
	Name = "volcengine"

	DefaultTextToImageKey  = "jimeng_t2i_v31"
	DefaultImageToImageKey = "jimeng_i2i_v30"

	codeSuccess = 10000
)

// Processor is the part of the VolcEngine visual SDK the client uses. The SDK
// takes the request body as interface{} and JSON-encodes it.
type Processor interface {
	CVProcess(req interface{}) (map[string]interface{}, int, error)
}

type Options struct {
	AccessKeyID     string
	SecretAccessKey string
	// Model is the req_key used for text-to-image.
	Model string
	// ImageToImageModel is the req_key used when a source image is given.
	ImageToImageModel string
	// SourceBaseURL resolves source image names that are not full URLs.
	SourceBaseURL string
	// PromptWriter derives the image prompt from the topic. Without one the
	// topic itself is the prompt.
	PromptWriter *llm.PromptWriter
	Processor    Processor
}

// Client generates images with the Jimeng models. It has no text
// capability.
type Client struct {
	llm.Unsupported

	processor Processor
	t2iKey    string
	i2iKey    string
	saver     *imagegen.Saver
}

var (
	_ llm.Service = (*Client)(nil)
	_ Processor   = (*visual.Visual)(nil)
)

func New(opts Options, images imagegen.Deps) (*Client, error) {
	if err := llm.RequireSettings(Name,
		llm.Setting{Name: "VOLCENGINE_ACCESS_KEY_ID", Value: opts.AccessKeyID},
		llm.Setting{Name: "VOLCENGINE_SECRET_ACCESS_KEY", Value: opts.SecretAccessKey},
		llm.Setting{Name: "model_name", Value: opts.Model},
	); err != nil {
		return nil, err
	}

	processor := opts.Processor
	if processor == nil {
		v := visual.NewInstance()
		v.Client.SetAccessKey(opts.AccessKeyID)
		v.Client.SetSecretKey(opts.SecretAccessKey)
		processor = v
	}

	c := &Client{
		Unsupported: llm.Unsupported{Provider: Name},
		processor:   processor,
		t2iKey:      opts.Model,
		i2iKey:      opts.ImageToImageModel,
	}
	if c.i2iKey == "" {
		c.i2iKey = DefaultImageToImageKey
	}

	saverOpts := []imagegen.Option{imagegen.WithSourceBaseURL(opts.SourceBaseURL)}
	if opts.PromptWriter != nil {
		saverOpts = append(saverOpts, imagegen.WithPrompt(opts.PromptWriter.ImagePrompt))
	}
	c.saver = images.Saver(Name, imageBackend{c}, saverOpts...)

	return c, nil
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) Capabilities() llm.Capability {
	return llm.CapImage
}

func (c *Client) GenerateAndSaveImage(ctx context.Context, req llm.ImageRequest) (*llm.ImageOutcome, error) {
	return c.saver.Save(ctx, req)
}

type imageBackend struct {
	c *Client
}

func (b imageBackend) Generate(ctx context.Context, spec imagegen.Spec) ([]string, error) {
	return b.c.process(ctx, spec)
}

func (c *Client) buildRequest(spec imagegen.Spec) map[string]interface{} {
	if spec.Mode == llm.ModeImageToImage {
		return map[string]interface{}{
			"req_key":    c.i2iKey,
			"image_urls": []string{spec.SourceURL},
			"prompt":     spec.Prompt,
			"seed":       spec.Seed,
			"scale":      spec.Scale,
			"width":      spec.Width,
			"height":     spec.Height,
			"return_url": true,
		}
	}

	req := map[string]interface{}{
		"req_key":     c.t2iKey,
		"prompt":      spec.Prompt,
		"use_pre_llm": spec.UsePreLLM,
		"width":       spec.Width,
		"height":      spec.Height,
		"n":           spec.Count,
		"return_url":  true,
	}
	if spec.Seed != 0 {
		req["seed"] = spec.Seed
	}
	return req
}

// process runs one synchronous CVProcess call. The SDK takes no context, so
// cancellation is only observed before the call is made.
func (c *Client) process(ctx context.Context, spec imagegen.Spec) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := c.buildRequest(spec)
	slog.Debug("Calling CVProcess", "provider", Name, "req_key", req["req_key"], "mode", spec.Mode)

	resp, status, err := c.processor.CVProcess(req)
	code, hasCode := responseCode(resp)

	if err != nil && !hasCode {
		return nil, fmt.Errorf("cv process (http %d): %w", status, err)
	}
	if code != codeSuccess {
		msg := stringField(resp, "message")
		if msg == "" && err != nil {
			msg = err.Error()
		}
		return nil, &imagegen.RemoteError{Provider: Name, Code: fmt.Sprint(code), Message: msg}
	}

	return imageURLs(resp), nil
}

func responseCode(resp map[string]interface{}) (int64, bool) {
	if resp == nil {
		return 0, false
	}
	switch v := resp["code"].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func stringField(resp map[string]interface{}, key string) string {
	if resp == nil {
		return ""
	}
	s, _ := resp[key].(string)
	return s
}

func imageURLs(resp map[string]interface{}) []string {
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		return nil
	}

	var urls []string
	switch list := data["image_urls"].(type) {
	case []interface{}:
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
	case []string:
		for _, s := range list {
			if s != "" {
				urls = append(urls, s)
			}
		}
	}
	return urls
}
