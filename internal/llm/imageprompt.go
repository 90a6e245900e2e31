package llm

import (
	"context"
	"fmt"

	"reelsmith/pkg/prompts"
)

// PromptWriter turns a topic into a descriptive image-generation prompt using
// a text-capable provider. It never relies on the image provider for prose.
type PromptWriter struct {
	text     Service
	template *prompts.Template
}

func NewPromptWriter(text Service, template *prompts.Template) (*PromptWriter, error) {
	if !Supports(text, CapText) {
		name := "<nil>"
		if text != nil {
			name = text.Name()
		}
		return nil, fmt.Errorf("prompt writer: %w", &CapabilityError{Provider: name, Capability: CapText})
	}
	if template == nil {
		return nil, fmt.Errorf("prompt writer: template is required")
	}

	return &PromptWriter{text: text, template: template}, nil
}

func (w *PromptWriter) ImagePrompt(ctx context.Context, topic string) (string, error) {
	prompt, err := w.text.GenerateContent(ctx, ContentRequest{Topic: topic, Template: w.template})
	if err != nil {
		return "", fmt.Errorf("derive image prompt: %w", err)
	}
	return prompt, nil
}
