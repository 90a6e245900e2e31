package llm

import (
	"context"
	"errors"
	"strings"

	"reelsmith/pkg/prompts"
)

const (
	DefaultImageWidth  = 1024
	DefaultImageHeight = 1024
	DefaultImageCount  = 1
	DefaultImageScale  = 0.5
)

// Capability is a set of operations a provider implements.
type Capability uint8

const (
	CapText Capability = 1 << iota
	CapImage
)

func (c Capability) Has(other Capability) bool {
	return other != 0 && c&other == other
}

func (c Capability) String() string {
	switch {
	case c.Has(CapText | CapImage):
		return "text+image"
	case c.Has(CapText):
		return "text"
	case c.Has(CapImage):
		return "image"
	default:
		return "none"
	}
}

// Service is the contract every provider implements. Providers that lack a
// capability embed Unsupported, which fails those calls with ErrNotSupported.
type Service interface {
	Name() string
	Capabilities() Capability
	GenerateContent(ctx context.Context, req ContentRequest) (string, error)
	GenerateAndSaveImage(ctx context.Context, req ImageRequest) (*ImageOutcome, error)
}

func Supports(s Service, c Capability) bool {
	return s != nil && s.Capabilities().Has(c)
}

type ContentRequest struct {
	Topic    string
	Template *prompts.Template
	Language string
	Length   string
}

// Render validates the request and fills the template slots.
func (r ContentRequest) Render() (string, error) {
	if strings.TrimSpace(r.Topic) == "" {
		return "", errors.New("topic is required")
	}
	if r.Template == nil {
		return "", errors.New("prompt template is required")
	}
	return r.Template.Format(prompts.Slots{
		Topic:    r.Topic,
		Language: r.Language,
		Length:   r.Length,
	})
}

type Mode string

const (
	ModeTextToImage  Mode = "text-to-image"
	ModeImageToImage Mode = "image-to-image"
)

type ImageRequest struct {
	Topic       string
	Width       int
	Height      int
	Count       int
	Seed        int64
	Scale       float64
	SourceImage string
	UsePreLLM   bool
}

func (r ImageRequest) WithDefaults() ImageRequest {
	if r.Width <= 0 {
		r.Width = DefaultImageWidth
	}
	if r.Height <= 0 {
		r.Height = DefaultImageHeight
	}
	if r.Count <= 0 {
		r.Count = DefaultImageCount
	}
	if r.Scale <= 0 {
		r.Scale = DefaultImageScale
	}
	return r
}

func (r ImageRequest) Mode() Mode {
	if r.SourceImage != "" {
		return ModeImageToImage
	}
	return ModeTextToImage
}

type FailedDownload struct {
	URL  string
	Path string
	Err  error
}

// ImageOutcome is the result of GenerateAndSaveImage. A successful outcome
// has at least one saved path; a failed one carries the reason instead.
// Paths may be shorter than the requested count when some downloads failed.
type ImageOutcome struct {
	Paths  []string
	Failed []FailedDownload
	Reason string
}

func Failure(reason string) *ImageOutcome {
	return &ImageOutcome{Reason: reason}
}

func (o *ImageOutcome) OK() bool {
	return o != nil && len(o.Paths) > 0
}

// Unsupported provides the default "not supported" implementation of every
// capability.
type Unsupported struct {
	Provider string
}

func (u Unsupported) GenerateContent(ctx context.Context, req ContentRequest) (string, error) {
	return "", &CapabilityError{Provider: u.Provider, Capability: CapText}
}

func (u Unsupported) GenerateAndSaveImage(ctx context.Context, req ImageRequest) (*ImageOutcome, error) {
	return nil, &CapabilityError{Provider: u.Provider, Capability: CapImage}
}
