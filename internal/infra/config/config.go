package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	apperrors "github.com/yanqian/smart-summary/pkg/errors"
)

const defaultConfigPath = "configs/config.yaml"

// Provider names accepted by llm.provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP HTTPConfig `yaml:"http"`
	LLM  LLMConfig  `yaml:"llm"`
	CORS CORSConfig `yaml:"cors"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string        `yaml:"address"         env:"HTTP_ADDRESS"`
	Port            int           `yaml:"port"            env:"PORT"`
	ReadTimeout     time.Duration `yaml:"readTimeout"     env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"    env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
}

// LLMConfig selects and tunes the upstream model provider.
type LLMConfig struct {
	Provider        string  `yaml:"provider"        env:"LLM_PROVIDER"`
	GoogleAPIKey    string  `yaml:"googleApiKey"    env:"GOOGLE_API_KEY"`
	OpenAIAPIKey    string  `yaml:"openaiApiKey"    env:"OPENAI_API_KEY"`
	BaseURL         string  `yaml:"baseUrl"         env:"LLM_BASE_URL"`
	Model           string  `yaml:"model"           env:"LLM_MODEL"`
	Temperature     float32 `yaml:"temperature"     env:"LLM_TEMPERATURE"`
	MaxOutputTokens int     `yaml:"maxOutputTokens" env:"LLM_MAX_OUTPUT_TOKENS"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	FrontendURL    string   `yaml:"frontendUrl"    env:"FRONTEND_URL"`
	VercelURL      string   `yaml:"vercelUrl"      env:"VERCEL_URL"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	return load(os.Getenv("CONFIG_PATH"), nil)
}

// load is Load with an injectable environment; a nil environ reads the process env.
func load(path string, environ map[string]string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:        8000,
			ReadTimeout: 15 * time.Second,
			// Summary streams stay open for as long as the model keeps generating.
			WriteTimeout:    0,
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:        ProviderGemini,
			Temperature:     0.3,
			MaxOutputTokens: 1000,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:3001",
			},
		},
	}
}

func (c *Config) applyDerived() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if strings.TrimSpace(c.HTTP.Address) == "" {
		c.HTTP.Address = fmt.Sprintf("0.0.0.0:%d", c.HTTP.Port)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.Model = "gemini-1.5-flash"
		case ProviderOpenAI:
			c.LLM.Model = "gpt-4o-mini"
		}
	}
}

// APIKey returns the credential of the selected provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case ProviderOpenAI:
		return strings.TrimSpace(c.OpenAIAPIKey)
	default:
		return strings.TrimSpace(c.GoogleAPIKey)
	}
}

// Origins returns the de-duplicated allow-list: the configured origins, then
// FRONTEND_URL, then the https Vercel deployment hosts.
func (c CORSConfig) Origins() []string {
	candidates := make([]string, 0, len(c.AllowedOrigins)+3)
	candidates = append(candidates, c.AllowedOrigins...)
	if v := strings.TrimSpace(c.FrontendURL); v != "" {
		candidates = append(candidates, v)
	}
	if v := strings.TrimSpace(c.VercelURL); v != "" {
		candidates = append(candidates, "https://"+v, "https://"+v+".vercel.app")
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, origin := range candidates {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	return out
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 {
		return errors.New("http timeouts cannot be negative")
	}
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.APIKey() == "" {
			return apperrors.Wrap(apperrors.CodeConfiguration, "GOOGLE_API_KEY environment variable is required", nil)
		}
	case ProviderOpenAI:
		if c.LLM.APIKey() == "" {
			return apperrors.Wrap(apperrors.CodeConfiguration, "OPENAI_API_KEY environment variable is required", nil)
		}
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 {
		return errors.New("llm.temperature cannot be negative")
	}
	if c.LLM.MaxOutputTokens < 0 {
		return errors.New("llm.maxOutputTokens cannot be negative")
	}
	return nil
}
