package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"

	"reelsmith/internal/deepseek"
	"reelsmith/internal/gemini"
	"reelsmith/internal/groq"
	"reelsmith/internal/imagegen"
	"reelsmith/internal/llm"
	"reelsmith/internal/tongyi"
	"reelsmith/internal/volcengine"
	"reelsmith/pkg/config"
	"reelsmith/pkg/prompts"
)

type factory func(ctx context.Context, s *selector) (llm.Service, error)

type registration struct {
	caps  llm.Capability
	build factory
}

var registry map[string]registration

func init() {
	registry = map[string]registration{
		config.ProviderTongyi:     {llm.CapText | llm.CapImage, buildTongyi},
		config.ProviderVolcEngine: {llm.CapImage, buildVolcEngine},
		config.ProviderGroq:       {llm.CapText, buildGroq},
		config.ProviderDeepSeek:   {llm.CapText, buildDeepSeek},
		config.ProviderGemini:     {llm.CapText, buildGemini},
	}
}

// ProviderInfo describes a registered provider without constructing it.
type ProviderInfo struct {
	Name         string
	Capabilities llm.Capability
}

func Providers() []ProviderInfo {
	return lo.FilterMap(config.KnownProviders(), func(name string, _ int) (ProviderInfo, bool) {
		reg, ok := registry[name]
		return ProviderInfo{Name: name, Capabilities: reg.caps}, ok
	})
}

// selector builds providers from the configuration store. Each provider is
// handed its own settings at construction; nothing reads configuration later.
type selector struct {
	store   config.Store
	prompts *prompts.Prompts
	images  imagegen.Deps
}

func (s *selector) build(ctx context.Context, name string) (llm.Service, error) {
	reg, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return reg.build(ctx, s)
}

func (s *selector) llmSetting(provider, field string) string {
	v, _ := s.store.Get(config.CategoryLLM, provider, field)
	return v
}

func (s *selector) imagePromptTemplate() (*prompts.Template, error) {
	tmpl, err := s.prompts.ImagePromptTemplate()
	if err != nil {
		return nil, fmt.Errorf("image prompt template: %w", err)
	}
	return tmpl, nil
}

func buildTongyi(ctx context.Context, s *selector) (llm.Service, error) {
	tmpl, err := s.imagePromptTemplate()
	if err != nil {
		return nil, err
	}

	var poll time.Duration
	if v := s.llmSetting(config.ProviderTongyi, config.FieldPollInterval); v != "" {
		if poll, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("tongyi poll interval: %w", err)
		}
	}

	return tongyi.New(tongyi.Options{
		APIKey:       s.llmSetting(config.ProviderTongyi, config.FieldAPIKey),
		Model:        s.llmSetting(config.ProviderTongyi, config.FieldModelName),
		ImageModel:   s.llmSetting(config.ProviderTongyi, config.FieldImageModel),
		BaseURL:      s.llmSetting(config.ProviderTongyi, config.FieldBaseURL),
		PollInterval: poll,
		ImagePrompt:  tmpl,
	}, s.images)
}

func buildVolcEngine(ctx context.Context, s *selector) (llm.Service, error) {
	opts := volcengine.Options{
		AccessKeyID:     s.llmSetting(config.ProviderVolcEngine, config.FieldAccessKeyID),
		SecretAccessKey: s.llmSetting(config.ProviderVolcEngine, config.FieldAccessKeySecret),
		Model:           s.llmSetting(config.ProviderVolcEngine, config.FieldModelName),
		SourceBaseURL:   s.llmSetting(config.ProviderVolcEngine, config.FieldSourceBaseURL),
	}

	if name := s.llmSetting(config.ProviderVolcEngine, config.FieldPromptProvider); name != "" {
		if reg, ok := registry[name]; ok && !reg.caps.Has(llm.CapText) {
			return nil, fmt.Errorf("volcengine prompt provider: %w", &llm.CapabilityError{Provider: name, Capability: llm.CapText})
		}
		text, err := s.build(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("volcengine prompt provider: %w", err)
		}
		tmpl, err := s.imagePromptTemplate()
		if err != nil {
			return nil, err
		}
		writer, err := llm.NewPromptWriter(text, tmpl)
		if err != nil {
			return nil, fmt.Errorf("volcengine prompt provider: %w", err)
		}
		opts.PromptWriter = writer
	}

	return volcengine.New(opts, s.images)
}

func buildGroq(ctx context.Context, s *selector) (llm.Service, error) {
	return groq.New(groq.Options{
		APIKey:       s.llmSetting(config.ProviderGroq, config.FieldAPIKey),
		Model:        s.llmSetting(config.ProviderGroq, config.FieldModelName),
		SystemPrompt: s.prompts.System,
	})
}

func buildDeepSeek(ctx context.Context, s *selector) (llm.Service, error) {
	return deepseek.New(deepseek.Options{
		APIKey:       s.llmSetting(config.ProviderDeepSeek, config.FieldAPIKey),
		Model:        s.llmSetting(config.ProviderDeepSeek, config.FieldModelName),
		SystemPrompt: s.prompts.System,
	})
}

func buildGemini(ctx context.Context, s *selector) (llm.Service, error) {
	return gemini.New(ctx, gemini.Options{
		APIKey:       s.llmSetting(config.ProviderGemini, config.FieldAPIKey),
		Model:        s.llmSetting(config.ProviderGemini, config.FieldModelName),
		Project:      s.llmSetting(config.ProviderGemini, config.FieldProject),
		SystemPrompt: s.prompts.System,
	})
}

func topicLimit(store config.Store) int {
	v, ok := store.Get(config.CategoryImages, "", config.FieldTopicLimit)
	if !ok {
		return imagegen.DefaultTopicLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return imagegen.DefaultTopicLimit
	}
	return n
}
