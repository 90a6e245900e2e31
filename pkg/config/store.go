package config

import (
	"strconv"
	"time"
)

const (
	CategoryLLM    = "llm"
	CategoryImages = "images"

	FieldAPIKey          = "api_key"
	FieldAccessKeyID     = "access_key_id"
	FieldAccessKeySecret = "access_key_secret"
	FieldModelName       = "model_name"
	FieldImageModel      = "image_model"
	FieldBaseURL         = "base_url"
	FieldSourceBaseURL   = "source_base_url"
	FieldPromptProvider  = "prompt_provider"
	FieldPollInterval    = "poll_interval"
	FieldProject         = "project"
	FieldWorkDir         = "work_dir"
	FieldTopicLimit      = "topic_limit"
)

// Store is the read side of the configuration consumed when providers are
// built. Absent and empty values are both reported as not found.
type Store interface {
	Get(category, provider, field string) (string, bool)
}

var _ Store = (*Config)(nil)

func (c *Config) Get(category, provider, field string) (string, bool) {
	var value string

	switch category {
	case CategoryLLM:
		value = c.llmValue(provider, field)
	case CategoryImages:
		switch field {
		case FieldWorkDir:
			value = c.Images.WorkDir
		case FieldTopicLimit:
			value = strconv.Itoa(c.Images.TopicLimit)
		}
	}

	return value, value != ""
}

func (c *Config) llmValue(provider, field string) string {
	switch provider {
	case ProviderGroq:
		return pick(field, c.GroqAPIKey, c.LLM.Groq.Model)
	case ProviderDeepSeek:
		return pick(field, c.DeepSeekAPIKey, c.LLM.DeepSeek.Model)
	case ProviderGemini:
		if field == FieldProject {
			return c.GCPProject
		}
		return pick(field, c.GeminiAPIKey, c.LLM.Gemini.Model)
	case ProviderTongyi:
		switch field {
		case FieldImageModel:
			return c.LLM.Tongyi.ImageModel
		case FieldBaseURL:
			return c.LLM.Tongyi.BaseURL
		case FieldPollInterval:
			return durationString(c.LLM.Tongyi.PollInterval)
		}
		return pick(field, c.DashScopeAPIKey, c.LLM.Tongyi.Model)
	case ProviderVolcEngine:
		switch field {
		case FieldAccessKeyID:
			return c.VolcEngineAccessKey
		case FieldAccessKeySecret:
			return c.VolcEngineSecretKey
		case FieldModelName:
			return c.LLM.VolcEngine.Model
		case FieldSourceBaseURL:
			return c.LLM.VolcEngine.SourceBaseURL
		case FieldPromptProvider:
			return c.LLM.VolcEngine.PromptProvider
		}
	}
	return ""
}

func pick(field, apiKey, model string) string {
	switch field {
	case FieldAPIKey:
		return apiKey
	case FieldModelName:
		return model
	}
	return ""
}

func durationString(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.String()
}
