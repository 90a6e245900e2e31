package imagegen

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"reelsmith/internal/llm"
)

// Spec is the provider-neutral request handed to a Backend after defaults
// have been applied and the prompt resolved.
type Spec struct {
	Mode      llm.Mode
	Prompt    string
	Width     int
	Height    int
	Count     int
	Seed      int64
	Scale     float64
	SourceURL string
	UsePreLLM bool
}

// Backend performs the remote generation call and returns the image URLs in
// order. A non-nominal provider status must be reported as *RemoteError.
type Backend interface {
	Generate(ctx context.Context, spec Spec) ([]string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// RemoteError is a business failure reported by the provider API.
type RemoteError struct {
	Provider string
	Code     string
	Message  string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api error: code %s", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s api error: code %s: %s", e.Provider, e.Code, e.Message)
}

// DownloadPolicy decides what happens to the remaining downloads after one
// fails.
type DownloadPolicy int

const (
	SkipFailed DownloadPolicy = iota
	StopOnFailure
)

func (p DownloadPolicy) String() string {
	switch p {
	case StopOnFailure:
		return "stop-on-failure"
	default:
		return "skip-failed"
	}
}

// PromptFunc turns a topic into the prompt sent to the backend.
type PromptFunc func(ctx context.Context, topic string) (string, error)

func randomSeed() int64 {
	return rand.Int64N(math.MaxInt32)
}
