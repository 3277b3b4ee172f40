package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName    string `mapstructure:"app_name"`
	Env        string `mapstructure:"app_env"`
	LogLevel   string `mapstructure:"log_level"`
	HTTPAddr   string `mapstructure:"http_addr"`
	SourceFile string `mapstructure:"source_file"`

	FetchTimeoutSeconds    int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout           time.Duration `mapstructure:"-"`
	MaxLookbackMinutes     int           `mapstructure:"max_lookback_minutes"`
	DefaultLookbackMinutes int           `mapstructure:"default_lookback_minutes"`

	LLMAPIKey         string        `mapstructure:"llm_api_key"`
	LLMAPIURL         string        `mapstructure:"llm_api_url"`
	LLMModelName      string        `mapstructure:"llm_model_name"`
	LLMMaxTokens      int64         `mapstructure:"llm_max_tokens"`
	LLMTemperature    float64       `mapstructure:"llm_temperature"`
	LLMTimeoutSeconds int64         `mapstructure:"llm_timeout_seconds"`
	LLMTimeout        time.Duration `mapstructure:"-"`

	ProgressStart float64 `mapstructure:"progress_start"`
	ProgressEnd   float64 `mapstructure:"progress_end"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	RedisAddr              string        `mapstructure:"redis_addr"`
	RedisPassword          string        `mapstructure:"redis_password"`
	RedisDB                int           `mapstructure:"redis_db"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`

	DigestCron            string `mapstructure:"digest_cron"`
	DigestLookbackMinutes int    `mapstructure:"digest_lookback_minutes"`
	DigestSummaryStyle    string `mapstructure:"digest_summary_style"`
}

// LLM groups the settings the summarizer is built from.
type LLM struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// LLM returns the text-generation backend settings.
func (c *Config) LLM() LLM {
	return LLM{
		APIKey:      strings.TrimSpace(c.LLMAPIKey),
		BaseURL:     strings.TrimSpace(c.LLMAPIURL),
		Model:       strings.TrimSpace(c.LLMModelName),
		MaxTokens:   c.LLMMaxTokens,
		Temperature: c.LLMTemperature,
		Timeout:     c.LLMTimeout,
	}
}

// String hides the API key so the config can be logged as is.
func (c Config) String() string {
	masked := c
	if masked.LLMAPIKey != "" {
		masked.LLMAPIKey = "***"
	}
	if masked.RedisPassword != "" {
		masked.RedisPassword = "***"
	}
	type plain Config
	return fmt.Sprintf("%+v", plain(masked))
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-news-digest")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8000")
	v.SetDefault("source_file", "")

	v.SetDefault("fetch_timeout_seconds", 10)
	v.SetDefault("max_lookback_minutes", 120)
	v.SetDefault("default_lookback_minutes", 60)

	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_api_url", "https://api.openai.com/v1")
	v.SetDefault("llm_model_name", "gpt-3.5-turbo")
	v.SetDefault("llm_max_tokens", 100)
	v.SetDefault("llm_temperature", 0.7)
	v.SetDefault("llm_timeout_seconds", 60)

	v.SetDefault("progress_start", 30)
	v.SetDefault("progress_end", 80)

	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/summaries.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.SetDefault("publishers_file", "")

	v.SetDefault("digest_cron", "")
	v.SetDefault("digest_lookback_minutes", 60)
	v.SetDefault("digest_summary_style", "sentence")
}

func (c *Config) normalize() error {
	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	c.FetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second

	if c.MaxLookbackMinutes <= 0 {
		return fmt.Errorf("invalid max_lookback_minutes (must be positive)")
	}
	if c.DefaultLookbackMinutes <= 0 || c.DefaultLookbackMinutes > c.MaxLookbackMinutes {
		return fmt.Errorf("invalid default_lookback_minutes (must be in 1..%d)", c.MaxLookbackMinutes)
	}

	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("invalid llm_max_tokens (must be positive)")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("invalid llm_temperature (must be in 0..2)")
	}
	if c.LLMTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid llm_timeout_seconds (must be positive seconds)")
	}
	c.LLMTimeout = time.Duration(c.LLMTimeoutSeconds) * time.Second

	if c.ProgressStart < 0 || c.ProgressEnd > 100 || c.ProgressStart > c.ProgressEnd {
		return fmt.Errorf("invalid progress bounds %v..%v (need 0 <= start <= end <= 100)", c.ProgressStart, c.ProgressEnd)
	}

	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.StorageTTL = time.Duration(c.StorageTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second

	if c.DigestLookbackMinutes <= 0 {
		c.DigestLookbackMinutes = c.DefaultLookbackMinutes
	}
	if c.DigestLookbackMinutes > c.MaxLookbackMinutes {
		c.DigestLookbackMinutes = c.MaxLookbackMinutes
	}
	c.DigestSummaryStyle = strings.TrimSpace(c.DigestSummaryStyle)
	c.DigestCron = strings.TrimSpace(c.DigestCron)

	return nil
}
