package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reelsmith/internal/llm"
	"reelsmith/internal/storage"
)

// Saver runs the generate-then-download flow shared by image providers.
type Saver struct {
	provider   string
	backend    Backend
	fetcher    Fetcher
	store      *storage.LocalStorage
	mirror     storage.Mirror
	prompt     PromptFunc
	policy     DownloadPolicy
	topicLimit int
	sourceBase string
	seed       func() int64
}

type Option func(*Saver)

func WithMirror(m storage.Mirror) Option {
	return func(s *Saver) {
		s.mirror = m
	}
}

// WithPrompt derives the backend prompt from the topic. Without it the topic
// is sent as is.
func WithPrompt(fn PromptFunc) Option {
	return func(s *Saver) {
		s.prompt = fn
	}
}

func WithPolicy(p DownloadPolicy) Option {
	return func(s *Saver) {
		s.policy = p
	}
}

func WithTopicLimit(n int) Option {
	return func(s *Saver) {
		s.topicLimit = n
	}
}

// WithSourceBaseURL resolves source image names that are not absolute URLs.
func WithSourceBaseURL(base string) Option {
	return func(s *Saver) {
		s.sourceBase = base
	}
}

func WithSeedSource(fn func() int64) Option {
	return func(s *Saver) {
		s.seed = fn
	}
}

func NewSaver(provider string, backend Backend, fetcher Fetcher, store *storage.LocalStorage, opts ...Option) *Saver {
	s := &Saver{
		provider:   provider,
		backend:    backend,
		fetcher:    fetcher,
		store:      store,
		policy:     SkipFailed,
		topicLimit: DefaultTopicLimit,
		seed:       randomSeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save generates images for req and downloads them into the work directory.
// Provider and transport failures come back as a failed outcome; the error
// return is limited to invalid requests and cancellation.
func (s *Saver) Save(ctx context.Context, req llm.ImageRequest) (*llm.ImageOutcome, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, errors.New("topic is required")
	}
	req = req.WithDefaults()

	spec, err := s.buildSpec(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("Image prompt failed", "provider", s.provider, "error", err)
		return llm.Failure(err.Error()), nil
	}

	slog.Info("Generating images",
		"provider", s.provider,
		"mode", spec.Mode,
		"count", spec.Count,
		"size", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
	)

	urls, err := s.backend.Generate(ctx, spec)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("Image generation failed", "provider", s.provider, "error", err)
		return llm.Failure(err.Error()), nil
	}

	if len(urls) == 0 {
		slog.Warn("Image generation returned no images", "provider", s.provider)
		return llm.Failure("no images returned"), nil
	}
	if len(urls) > req.Count {
		urls = urls[:req.Count]
	}

	if err := s.store.EnsureDir(); err != nil {
		return llm.Failure(err.Error()), nil
	}

	return s.download(ctx, req.Topic, urls)
}

func (s *Saver) buildSpec(ctx context.Context, req llm.ImageRequest) (Spec, error) {
	spec := Spec{
		Mode:      req.Mode(),
		Prompt:    req.Topic,
		Width:     req.Width,
		Height:    req.Height,
		Count:     req.Count,
		Seed:      req.Seed,
		Scale:     req.Scale,
		UsePreLLM: req.UsePreLLM,
	}

	if s.prompt != nil {
		prompt, err := s.prompt(ctx, req.Topic)
		if err != nil {
			return Spec{}, err
		}
		spec.Prompt = prompt
	}

	if spec.Mode == llm.ModeImageToImage {
		spec.SourceURL = resolveSource(s.sourceBase, req.SourceImage)
		if spec.Seed == 0 {
			spec.Seed = s.seed()
		}
	}

	return spec, nil
}

func (s *Saver) download(ctx context.Context, topic string, urls []string) (*llm.ImageOutcome, error) {
	outcome := &llm.ImageOutcome{}

	for i, u := range urls {
		dest := s.store.ImagePath(FileName(s.provider, topic, i, s.topicLimit))

		if err := s.fetcher.Fetch(ctx, u, dest); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("Image download failed", "provider", s.provider, "url", u, "error", err)
			outcome.Failed = append(outcome.Failed, llm.FailedDownload{URL: u, Path: dest, Err: err})
			if s.policy == StopOnFailure {
				break
			}
			continue
		}

		slog.Debug("Image saved", "provider", s.provider, "path", dest)
		outcome.Paths = append(outcome.Paths, dest)
		s.mirrorFile(ctx, dest)
	}

	if len(outcome.Paths) == 0 {
		outcome.Reason = fmt.Sprintf("all %d image downloads failed", len(urls))
	}

	return outcome, nil
}

func (s *Saver) mirrorFile(ctx context.Context, path string) {
	if s.mirror == nil {
		return
	}

	location, err := s.mirror.Upload(ctx, path)
	if err != nil {
		slog.Warn("Image mirror upload failed", "path", path, "error", err)
		return
	}
	slog.Debug("Image mirrored", "path", path, "location", location)
}

func resolveSource(base, source string) string {
	if base == "" || strings.Contains(source, "://") {
		return source
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(source, "/")
}
