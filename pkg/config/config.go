package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath       = "config.yaml"
	defaultProvider         = "tongyi"
	defaultWorkDir          = "./resource"
	defaultImageWidth       = 1024
	defaultImageHeight      = 1024
	defaultImageCount       = 1
	defaultImageScale       = 0.5
	defaultTopicLimit       = 50
	defaultDownloadTimeout  = 60 * time.Second
	defaultGroqModel        = "llama-3.3-70b-versatile"
	defaultDeepSeekModel    = "deepseek-chat"
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultTongyiModel      = "qwen-plus"
	defaultTongyiImageModel = "wanx-v1"
	defaultTongyiPoll       = 2 * time.Second
	defaultVolcEngineModel  = "jimeng_t2i_v31"
	defaultGCSPrefix        = "images"
)

const (
	ProviderGroq       = "groq"
	ProviderDeepSeek   = "deepseek"
	ProviderGemini     = "gemini"
	ProviderTongyi     = "tongyi"
	ProviderVolcEngine = "volcengine"
)

var knownProviders = []string{ProviderTongyi, ProviderVolcEngine, ProviderGroq, ProviderDeepSeek, ProviderGemini}

// Credentials are read from the environment (and .env). Any value may be a
// Secret Manager reference of the form sm://<secret>.
type Credentials struct {
	GroqAPIKey          string `env:"GROQ_API_KEY"`
	DeepSeekAPIKey      string `env:"DEEPSEEK_API_KEY"`
	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	DashScopeAPIKey     string `env:"DASHSCOPE_API_KEY"`
	VolcEngineAccessKey string `env:"VOLCENGINE_ACCESS_KEY_ID"`
	VolcEngineSecretKey string `env:"VOLCENGINE_SECRET_ACCESS_KEY"`
	GCSBucket           string `env:"GCS_BUCKET"`
	GCPProject          string `env:"GOOGLE_CLOUD_PROJECT"`
}

type Config struct {
	Credentials `yaml:"-"`

	LLM    LLMConfig    `yaml:"llm"`
	Images ImagesConfig `yaml:"images"`
	GCS    GCSConfig    `yaml:"gcs"`
}

type LLMConfig struct {
	Provider   string           `yaml:"provider"`
	Groq       ModelConfig      `yaml:"groq"`
	DeepSeek   ModelConfig      `yaml:"deepseek"`
	Gemini     ModelConfig      `yaml:"gemini"`
	Tongyi     TongyiConfig     `yaml:"tongyi"`
	VolcEngine VolcEngineConfig `yaml:"volcengine"`
}

type ModelConfig struct {
	Model string `yaml:"model"`
}

type TongyiConfig struct {
	Model        string        `yaml:"model"`
	ImageModel   string        `yaml:"image_model"`
	BaseURL      string        `yaml:"base_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type VolcEngineConfig struct {
	Model          string `yaml:"model"`
	SourceBaseURL  string `yaml:"source_base_url"`
	PromptProvider string `yaml:"prompt_provider"`
}

type ImagesConfig struct {
	WorkDir    string  `yaml:"work_dir"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Count      int     `yaml:"count"`
	Scale      float64 `yaml:"scale"`
	TopicLimit int     `yaml:"topic_limit"`

	// DownloadTimeout bounds each image download.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

type GCSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath)
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(&cfg.Credentials); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := resolveSecrets(ctx, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("No config file found, using defaults", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(cfg)
	applyImagesDefaults(cfg)
	applyGCSDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaultProvider
	}
	if cfg.LLM.Groq.Model == "" {
		cfg.LLM.Groq.Model = defaultGroqModel
	}
	if cfg.LLM.DeepSeek.Model == "" {
		cfg.LLM.DeepSeek.Model = defaultDeepSeekModel
	}
	if cfg.LLM.Gemini.Model == "" {
		cfg.LLM.Gemini.Model = defaultGeminiModel
	}
	if cfg.LLM.Tongyi.Model == "" {
		cfg.LLM.Tongyi.Model = defaultTongyiModel
	}
	if cfg.LLM.Tongyi.ImageModel == "" {
		cfg.LLM.Tongyi.ImageModel = defaultTongyiImageModel
	}
	if cfg.LLM.Tongyi.PollInterval == 0 {
		cfg.LLM.Tongyi.PollInterval = defaultTongyiPoll
	}
	if cfg.LLM.VolcEngine.Model == "" {
		cfg.LLM.VolcEngine.Model = defaultVolcEngineModel
	}
}

func applyImagesDefaults(cfg *Config) {
	if cfg.Images.WorkDir == "" {
		cfg.Images.WorkDir = defaultWorkDir
	}
	if abs, err := filepath.Abs(cfg.Images.WorkDir); err == nil {
		cfg.Images.WorkDir = abs
	}
	if cfg.Images.Width == 0 {
		cfg.Images.Width = defaultImageWidth
	}
	if cfg.Images.Height == 0 {
		cfg.Images.Height = defaultImageHeight
	}
	if cfg.Images.Count == 0 {
		cfg.Images.Count = defaultImageCount
	}
	if cfg.Images.Scale == 0 {
		cfg.Images.Scale = defaultImageScale
	}
	if cfg.Images.TopicLimit == 0 {
		cfg.Images.TopicLimit = defaultTopicLimit
	}
	if cfg.Images.DownloadTimeout <= 0 {
		cfg.Images.DownloadTimeout = defaultDownloadTimeout
	}
}

func applyGCSDefaults(cfg *Config) {
	if cfg.GCS.Prefix == "" {
		cfg.GCS.Prefix = defaultGCSPrefix
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if !IsKnownProvider(c.LLM.Provider) {
		result = multierror.Append(result, fmt.Errorf("llm.provider: unknown provider %q (known: %s)",
			c.LLM.Provider, strings.Join(knownProviders, ", ")))
	}
	if p := c.LLM.VolcEngine.PromptProvider; p != "" && !IsKnownProvider(p) {
		result = multierror.Append(result, fmt.Errorf("llm.volcengine.prompt_provider: unknown provider %q", p))
	}
	if c.Images.Width < 0 || c.Images.Height < 0 {
		result = multierror.Append(result, fmt.Errorf("images: width and height must be positive"))
	}
	if c.Images.Count < 0 {
		result = multierror.Append(result, fmt.Errorf("images.count must be positive"))
	}
	if c.GCS.Enabled && c.GCSBucket == "" {
		result = multierror.Append(result, fmt.Errorf("gcs.enabled requires GCS_BUCKET"))
	}

	return result.ErrorOrNil()
}

func IsKnownProvider(name string) bool {
	return lo.Contains(knownProviders, name)
}

func KnownProviders() []string {
	return append([]string(nil), knownProviders...)
}
