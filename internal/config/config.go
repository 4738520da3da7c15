package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultProvider       = "openai"
	DefaultModel          = "gpt-3.5-turbo"
	DefaultMaxTokens      = 1000
	DefaultTemperature    = 0.7
	DefaultTimeout        = "60s"
	DefaultRateWindow     = "60s"
	DefaultRateBurst      = 3
	DefaultDecorationMin  = 2
	DefaultDecorationMax  = 4
	DefaultIdleTTL        = "24h"
	DefaultReportSchedule = "0 0 9 * * *"
	DefaultBufSize        = 100
	DefaultUserQueue      = 16
	DefaultLogMaxSizeMB   = 10
	DefaultLogMaxBackups  = 5
	DefaultLogMaxAgeDays  = 30
)

// EnvFile is loaded into the environment before overrides are read. Values
// already present in the environment win.
var EnvFile = ".env"

type Config struct {
	Provider   ProviderConfig   `json:"provider"`
	Generation GenerationConfig `json:"generation"`
	RateLimit  RateLimitConfig  `json:"rateLimit"`
	Decoration DecorationConfig `json:"decoration"`
	Session    SessionConfig    `json:"session"`
	Operator   OperatorConfig   `json:"operator"`
	Report     ReportConfig     `json:"report"`
	Taxonomy   TaxonomyConfig   `json:"taxonomy"`
	Channels   ChannelsConfig   `json:"channels"`
	Gateway    GatewayConfig    `json:"gateway"`
	Log        LogConfig        `json:"log"`
}

type ProviderConfig struct {
	Type    string `json:"type,omitempty" validate:"omitempty,oneof=openai anthropic"` // "openai" (default) or "anthropic"
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty" validate:"omitempty,url"`
}

type GenerationConfig struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens" validate:"min=1"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`
	Timeout     string  `json:"timeout" validate:"duration"`
}

type RateLimitConfig struct {
	Window string `json:"window" validate:"duration"`
	Burst  int    `json:"burst" validate:"min=1"`
}

// DecorationConfig bounds the decorative symbols per generated variant.
type DecorationConfig struct {
	Min int `json:"min" validate:"min=0"`
	Max int `json:"max" validate:"gtefield=Min"`
}

type SessionConfig struct {
	IdleTTL string `json:"idleTTL" validate:"duration"`
}

type OperatorConfig struct {
	Channel string `json:"channel,omitempty"`
	ChatID  string `json:"chatId,omitempty"`
}

type ReportConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

type TaxonomyConfig struct {
	Path string `json:"path,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type GatewayConfig struct {
	BufSize   int `json:"bufSize" validate:"min=1"`
	UserQueue int `json:"userQueue" validate:"min=1"`
}

type LogConfig struct {
	Level      string `json:"level,omitempty"`
	File       string `json:"file,omitempty"`
	JSON       bool   `json:"json,omitempty"`
	MaxSizeMB  int    `json:"maxSizeMB,omitempty"`
	MaxBackups int    `json:"maxBackups,omitempty"`
	MaxAgeDays int    `json:"maxAgeDays,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{Type: DefaultProvider},
		Generation: GenerationConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			Timeout:     DefaultTimeout,
		},
		RateLimit: RateLimitConfig{
			Window: DefaultRateWindow,
			Burst:  DefaultRateBurst,
		},
		Decoration: DecorationConfig{
			Min: DefaultDecorationMin,
			Max: DefaultDecorationMax,
		},
		Session: SessionConfig{IdleTTL: DefaultIdleTTL},
		Operator: OperatorConfig{Channel: "telegram"},
		Report: ReportConfig{
			Enabled:  true,
			Schedule: DefaultReportSchedule,
		},
		Gateway: GatewayConfig{
			BufSize:   DefaultBufSize,
			UserQueue: DefaultUserQueue,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".greetbot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", EnvFile, err)
	}
	applyEnv(cfg)

	if cfg.Provider.Type == "" {
		cfg.Provider.Type = DefaultProvider
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = DefaultModel
	}
	if cfg.Report.Schedule == "" {
		cfg.Report.Schedule = DefaultReportSchedule
	}
	if cfg.Operator.Channel == "" {
		cfg.Operator.Channel = "telegram"
	}

	return cfg, nil
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config) {
	if key := os.Getenv("GREETBOT_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
		cfg.Provider.Type = "openai"
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
		cfg.Provider.Type = "anthropic"
	}
	if p := os.Getenv("GREETBOT_PROVIDER"); p != "" {
		cfg.Provider.Type = p
	}
	if url := os.Getenv("GREETBOT_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if m := os.Getenv("GREETBOT_MODEL"); m != "" {
		cfg.Generation.Model = m
	}
	if token := os.Getenv("GREETBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" && cfg.Channels.Telegram.Token == "" {
		cfg.Channels.Telegram.Token = token
	}
	if chat := os.Getenv("GREETBOT_OPERATOR_CHAT"); chat != "" {
		cfg.Operator.ChatID = chat
	}
	if window := os.Getenv("GREETBOT_RATE_WINDOW"); window != "" {
		cfg.RateLimit.Window = window
	}
	if burst := os.Getenv("GREETBOT_RATE_BURST"); burst != "" {
		if parsed, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = parsed
		}
	}
	if path := os.Getenv("GREETBOT_TAXONOMY"); path != "" {
		cfg.Taxonomy.Path = path
	}
	if file := os.Getenv("GREETBOT_LOG_FILE"); file != "" {
		cfg.Log.File = file
	}
	if level := os.Getenv("GREETBOT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// duration: a time.ParseDuration string greater than zero.
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	return v
}

// Validate checks value ranges. Missing credentials are not an error here;
// the commands that need them report it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c GenerationConfig) TimeoutDuration() time.Duration { return mustDuration(c.Timeout) }
func (c RateLimitConfig) WindowDuration() time.Duration   { return mustDuration(c.Window) }
func (c SessionConfig) IdleTTLDuration() time.Duration    { return mustDuration(c.IdleTTL) }

// mustDuration parses a validated duration; invalid input yields zero so
// callers fall back to their own defaults.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0600)
}
