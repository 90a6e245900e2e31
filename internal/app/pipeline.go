package app

import (
	"context"
	"fmt"
	"log/slog"

	"reelsmith/internal/llm"
)

// Pipeline exposes the two entry points the rest of the content pipeline
// calls: script text and images for a topic.
type Pipeline struct {
	service *Service
}

type ContentRequest struct {
	Provider string
	Topic    string
	Language string
	Length   string
}

type ImageRequest struct {
	Provider string
	llm.ImageRequest
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service}
}

func (pipeline *Pipeline) GenerateContent(ctx context.Context, req ContentRequest) (string, error) {
	svc, err := pipeline.service.Provider(ctx, req.Provider)
	if err != nil {
		return "", err
	}

	tmpl, err := pipeline.service.Prompts().ContentTemplate()
	if err != nil {
		return "", fmt.Errorf("content template: %w", err)
	}

	slog.Info("Generating content", "provider", svc.Name(), "topic", req.Topic)
	return svc.GenerateContent(ctx, llm.ContentRequest{
		Topic:    req.Topic,
		Template: tmpl,
		Language: req.Language,
		Length:   req.Length,
	})
}

// GenerateImages fills unset dimensions, count and scale from the images
// section of the configuration before delegating to the provider.
func (pipeline *Pipeline) GenerateImages(ctx context.Context, req ImageRequest) (*llm.ImageOutcome, error) {
	svc, err := pipeline.service.Provider(ctx, req.Provider)
	if err != nil {
		return nil, err
	}

	images := pipeline.service.Config().Images
	r := req.ImageRequest
	if r.Width <= 0 {
		r.Width = images.Width
	}
	if r.Height <= 0 {
		r.Height = images.Height
	}
	if r.Count <= 0 {
		r.Count = images.Count
	}
	if r.Scale <= 0 {
		r.Scale = images.Scale
	}

	outcome, err := svc.GenerateAndSaveImage(ctx, r)
	if err != nil {
		return nil, err
	}

	if outcome.OK() {
		slog.Info("Images saved", "provider", svc.Name(), "count", len(outcome.Paths), "requested", r.Count)
	} else {
		slog.Warn("No images produced", "provider", svc.Name(), "reason", outcome.Reason)
	}
	return outcome, nil
}
