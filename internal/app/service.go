package app

import (
	"context"
	"log/slog"

	"reelsmith/internal/imagefetch"
	"reelsmith/internal/imagegen"
	"reelsmith/internal/llm"
	"reelsmith/internal/storage"
	"reelsmith/pkg/config"
	"reelsmith/pkg/prompts"
)

type Service struct {
	cfg      *config.Config
	prompts  *prompts.Prompts
	storage  *storage.LocalStorage
	mirror   *storage.GCSStorage
	selector *selector
}

type ServiceOptions struct {
	Config  *config.Config
	Prompts *prompts.Prompts
	Storage *storage.LocalStorage
	Mirror  *storage.GCSStorage
	Fetcher *imagefetch.Fetcher
	Policy  imagegen.DownloadPolicy
}

func NewService(opts ServiceOptions) *Service {
	deps := imagegen.Deps{
		Fetcher:    opts.Fetcher,
		Store:      opts.Storage,
		TopicLimit: topicLimit(opts.Config),
		Policy:     opts.Policy,
	}
	if opts.Mirror != nil {
		deps.Mirror = opts.Mirror
	}

	return &Service{
		cfg:     opts.Config,
		prompts: opts.Prompts,
		storage: opts.Storage,
		mirror:  opts.Mirror,
		selector: &selector{
			store:   opts.Config,
			prompts: opts.Prompts,
			images:  deps,
		},
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Prompts() *prompts.Prompts {
	return s.prompts
}

func (s *Service) Storage() *storage.LocalStorage {
	return s.storage
}

func (s *Service) Mirror() *storage.GCSStorage {
	return s.mirror
}

// Provider builds the named provider, or the configured default when name is
// empty. Missing credentials fail here, before any remote call.
func (s *Service) Provider(ctx context.Context, name string) (llm.Service, error) {
	if name == "" {
		name = s.cfg.LLM.Provider
	}

	svc, err := s.selector.build(ctx, name)
	if err != nil {
		return nil, err
	}

	slog.Debug("Provider ready", "provider", svc.Name(), "capabilities", svc.Capabilities().String())
	return svc, nil
}

func (s *Service) Close() error {
	if s.mirror != nil {
		return s.mirror.Close()
	}
	return nil
}
