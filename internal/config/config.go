// Package config handles loading and validating the saturday configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the saturday daemon.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Transports  TransportsConfig  `mapstructure:"transports"`
	Inference   InferenceConfig   `mapstructure:"inference"`
	Interpreter InterpreterConfig `mapstructure:"interpreter"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// InferenceConfig selects and configures the model backend.
type InferenceConfig struct {
	Backend     string          `mapstructure:"backend"` // "workersai", "openai" or "local"
	Timeout     time.Duration   `mapstructure:"timeout"`
	TextModel   string          `mapstructure:"text_model"`
	SpeechModel string          `mapstructure:"speech_model"`
	WorkersAI   WorkersAIConfig `mapstructure:"workersai"`
	OpenAI      OpenAIConfig    `mapstructure:"openai"`
	Local       LocalConfig     `mapstructure:"local"`
}

// WorkersAIConfig holds Cloudflare Workers AI REST settings.
type WorkersAIConfig struct {
	AccountID string `mapstructure:"account_id"`
	APIToken  string `mapstructure:"api_token"`
	BaseURL   string `mapstructure:"base_url"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // empty means api.openai.com
}

// LocalConfig holds self-hosted model settings.
type LocalConfig struct {
	WhisperEndpoint string `mapstructure:"whisper_endpoint"`
	WhisperType     string `mapstructure:"whisper_type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	LLMEndpoint     string `mapstructure:"llm_endpoint"`
	Language        string `mapstructure:"language"` // ISO-639-1 default language (e.g., "en", "fr")
}

// InterpreterConfig controls how model output is handed back to callers.
type InterpreterConfig struct {
	// StrictActions rejects model output that is not a valid action
	// descriptor instead of forwarding it untouched.
	StrictActions bool `mapstructure:"strict_actions"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Default model identifiers per backend, used when text_model/speech_model
// are left empty.
var defaultModels = map[string][2]string{
	"workersai": {"@cf/meta/llama-3-8b-instruct", "@cf/openai/whisper"},
	"openai":    {"gpt-4o-mini", "whisper-1"},
	"local":     {"llama3", ""},
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./saturday.yaml, ./configs/saturday.yaml, /etc/saturday/saturday.yaml.
// A .env file in the working directory is loaded into the environment first.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.max_body_bytes", 25<<20)
	v.SetDefault("transports.http.allowed_origins", []string{"*"})
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("inference.backend", "workersai")
	v.SetDefault("inference.timeout", 60*time.Second)
	v.SetDefault("inference.text_model", "")
	v.SetDefault("inference.speech_model", "")
	v.SetDefault("inference.workersai.account_id", "${CLOUDFLARE_ACCOUNT_ID}")
	v.SetDefault("inference.workersai.api_token", "${CLOUDFLARE_API_TOKEN}")
	v.SetDefault("inference.workersai.base_url", "https://api.cloudflare.com/client/v4")
	v.SetDefault("inference.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("inference.openai.base_url", "")
	v.SetDefault("inference.local.whisper_endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("inference.local.whisper_type", "openai")
	v.SetDefault("inference.local.llm_endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("inference.local.language", "")
	v.SetDefault("interpreter.strict_actions", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("saturday")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/saturday")
	}

	// Environment variables: SATURDAY_SERVER_HEALTH_PORT, SATURDAY_INFERENCE_BACKEND, etc.
	v.SetEnvPrefix("SATURDAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional: env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Inference.WorkersAI.AccountID = resolveEnvRef(cfg.Inference.WorkersAI.AccountID)
	cfg.Inference.WorkersAI.APIToken = resolveEnvRef(cfg.Inference.WorkersAI.APIToken)
	cfg.Inference.OpenAI.APIKey = resolveEnvRef(cfg.Inference.OpenAI.APIKey)

	cfg.applyModelDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyModelDefaults fills empty model identifiers with the backend's defaults.
func (c *Config) applyModelDefaults() {
	models, ok := defaultModels[c.Inference.Backend]
	if !ok {
		return
	}
	if c.Inference.TextModel == "" {
		c.Inference.TextModel = models[0]
	}
	if c.Inference.SpeechModel == "" {
		c.Inference.SpeechModel = models[1]
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func Validate(cfg *Config) error {
	if _, ok := defaultModels[cfg.Inference.Backend]; !ok {
		return fmt.Errorf("unknown inference backend %q (want workersai, openai or local)", cfg.Inference.Backend)
	}
	if cfg.Inference.Backend == "workersai" && isUnset(cfg.Inference.WorkersAI.AccountID) {
		return fmt.Errorf("inference.workersai.account_id is required (set CLOUDFLARE_ACCOUNT_ID)")
	}
	if cfg.Inference.Timeout < 0 {
		return fmt.Errorf("inference.timeout must not be negative")
	}
	for name, port := range map[string]int{
		"server.health_port":   cfg.Server.HealthPort,
		"transports.http.port": cfg.Transports.HTTP.Port,
		"transports.grpc.port": cfg.Transports.GRPC.Port,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
		}
	}
	if !cfg.Transports.HTTP.Enabled && !cfg.Transports.GRPC.Enabled {
		return fmt.Errorf("no transports enabled: enable at least one in config")
	}
	return nil
}

// isUnset reports whether v is empty or an unresolved "${VAR}" reference.
func isUnset(v string) bool {
	return v == "" || (strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}"))
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
