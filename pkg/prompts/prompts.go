package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

const (
	defaultSystemPrompt  = "You are a helpful assistant that writes content for short videos."
	defaultContentPrompt = "Write engaging narration for a short video about {{.topic}}. " +
		"Answer in {{.language}}. Keep it {{.length}}. " +
		"Return only the spoken text, without titles, stage directions or speaker labels."
	defaultImagePrompt = "Write a detailed, concrete image-generation prompt in English for this topic: {{.topic}}. " +
		"Describe the composition, style, colours, lighting and main subject. Keep it under 500 characters."
)

type Prompts struct {
	System      string `yaml:"system"`
	Content     string `yaml:"content"`
	ImagePrompt string `yaml:"image_prompt"`
}

// Slots holds the values a provider fills into a Template.
type Slots struct {
	Topic    string
	Language string
	Length   string
}

// Template is a prompt with named substitution slots: {{.topic}}, {{.language}}
// and {{.length}}. Referencing any other slot fails at Format time.
type Template struct {
	text string
	tmpl *template.Template
}

func New(text string) (*Template, error) {
	if text == "" {
		return nil, errors.New("empty prompt template")
	}

	t, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Template{text: text, tmpl: t}, nil
}

func MustNew(text string) *Template {
	t, err := New(text)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Format(s Slots) (string, error) {
	data := map[string]string{
		"topic":    s.Topic,
		"language": s.Language,
		"length":   s.Length,
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func (t *Template) String() string {
	return t.text
}

func Default() *Prompts {
	return &Prompts{
		System:      defaultSystemPrompt,
		Content:     defaultContentPrompt,
		ImagePrompt: defaultImagePrompt,
	}
}

func Load() (*Prompts, error) {
	p, err := LoadFrom(defaultPromptsPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("No prompts.yaml found, using built-in prompts")
		return Default(), nil
	}
	return p, err
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if p.System == "" {
		p.System = defaultSystemPrompt
	}
	if p.Content == "" {
		p.Content = defaultContentPrompt
	}
	if p.ImagePrompt == "" {
		p.ImagePrompt = defaultImagePrompt
	}

	return p, nil
}

func (p *Prompts) ContentTemplate() (*Template, error) {
	return New(p.Content)
}

func (p *Prompts) ImagePromptTemplate() (*Template, error) {
	return New(p.ImagePrompt)
}
