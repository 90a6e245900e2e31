package app

import (
	"context"
	"fmt"
	"net/http"

	"reelsmith/internal/imagefetch"
	"reelsmith/internal/imagegen"
	"reelsmith/internal/storage"
	"reelsmith/pkg/config"
	"reelsmith/pkg/prompts"
)

type BuildOptions struct {
	Policy imagegen.DownloadPolicy
}

func BuildService(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p, err := prompts.Load()
	if err != nil {
		return nil, err
	}

	localStorage := storage.NewLocalStorage(cfg.Images.WorkDir)
	if err := localStorage.EnsureDir(); err != nil {
		return nil, err
	}

	var mirror *storage.GCSStorage
	if cfg.GCS.Enabled {
		mirror, err = storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCS.Prefix)
		if err != nil {
			return nil, err
		}
	}

	return NewService(ServiceOptions{
		Config:  cfg,
		Prompts: p,
		Storage: localStorage,
		Mirror:  mirror,
		Fetcher: newFetcher(cfg),
		Policy:  opts.Policy,
	}), nil
}

func newFetcher(cfg *config.Config) *imagefetch.Fetcher {
	return imagefetch.New(imagefetch.WithHTTPClient(&http.Client{Timeout: cfg.Images.DownloadTimeout}))
}
