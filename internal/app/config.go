package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

const envPrefix = "LOCALAI"

type Config struct {
	AppName    string `mapstructure:"app_name" validate:"required"`
	AppVersion string `mapstructure:"app_version" validate:"required"`
	Debug      bool   `mapstructure:"debug"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port" validate:"min=1,max=65535"`

	CORSOrigins []string `mapstructure:"cors_origins"`

	DBDriver          string        `mapstructure:"db_driver" validate:"oneof=sqlite postgres"`
	DatabaseURL       string        `mapstructure:"database_url" validate:"required"`
	DBMaxOpenConns    int           `mapstructure:"db_max_open_conns" validate:"min=0"`
	DBMaxIdleConns    int           `mapstructure:"db_max_idle_conns" validate:"min=0"`
	DBConnMaxLifetime time.Duration `mapstructure:"db_conn_max_lifetime"`

	InferenceProvider       string        `mapstructure:"inference_provider" validate:"oneof=ollama openai"`
	OllamaBaseURL           string        `mapstructure:"ollama_base_url" validate:"omitempty,url"`
	OpenAIBaseURL           string        `mapstructure:"openai_base_url" validate:"omitempty,url"`
	OpenAIAPIKey            string        `mapstructure:"openai_api_key"`
	DefaultModel            string        `mapstructure:"default_model" validate:"required"`
	DefaultTemperature      float64       `mapstructure:"default_temperature" validate:"gte=0,lte=2"`
	DefaultTopP             float64       `mapstructure:"default_top_p" validate:"gte=0,lte=1"`
	DefaultTopK             int           `mapstructure:"default_top_k" validate:"min=1,max=100"`
	DefaultMaxTokens        int           `mapstructure:"default_max_tokens" validate:"min=1,max=32768"`
	InferenceTimeout        time.Duration `mapstructure:"inference_timeout" validate:"gt=0"`
	InferenceConnectTimeout time.Duration `mapstructure:"inference_connect_timeout" validate:"gt=0"`
	InferenceStreamTimeout  time.Duration `mapstructure:"inference_stream_timeout" validate:"min=0"`
	FallbackEnabled         bool          `mapstructure:"fallback_enabled"`
	FallbackWordDelay       time.Duration `mapstructure:"fallback_word_delay" validate:"min=0"`
	ModelCacheTTL           time.Duration `mapstructure:"model_cache_ttl" validate:"min=0"`

	RedisAddr          string        `mapstructure:"redis_addr"`
	RedisPassword      string        `mapstructure:"redis_password"`
	RedisDB            int           `mapstructure:"redis_db" validate:"min=0"`
	RedisCatalogKey    string        `mapstructure:"redis_catalog_key"`
	RedisProbeInterval time.Duration `mapstructure:"redis_probe_interval" validate:"min=0"`

	SerializeConversations bool          `mapstructure:"serialize_conversations"`
	ShutdownTimeout        time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	OtelEnabled     bool    `mapstructure:"otel_enabled"`
	OtelServiceName string  `mapstructure:"otel_service_name"`
	OtelEnvironment string  `mapstructure:"otel_environment"`
	OtelEndpoint    string  `mapstructure:"otel_exporter_otlp_endpoint"`
	OtelInsecure    bool    `mapstructure:"otel_exporter_otlp_insecure"`
	OtelHeaders     string  `mapstructure:"otel_exporter_otlp_headers"`
	OtelSampleRatio float64 `mapstructure:"otel_sample_ratio" validate:"gte=0,lte=1"`
}

var configDefaults = map[string]any{
	"app_name":    "LocalAI Assistant",
	"app_version": "1.0.0",
	"debug":       false,
	"host":        "0.0.0.0",
	"port":        8000,

	"cors_origins": "http://localhost:3000,http://localhost:5173",

	"db_driver":            "sqlite",
	"database_url":         "file:localai.db",
	"db_max_open_conns":    0,
	"db_max_idle_conns":    0,
	"db_conn_max_lifetime": "0s",

	"inference_provider":        "ollama",
	"ollama_base_url":           "http://localhost:11434",
	"openai_base_url":           "",
	"openai_api_key":            "",
	"default_model":             "dolphin-mistral",
	"default_temperature":       chat.DefaultSampling.Temperature,
	"default_top_p":             chat.DefaultSampling.TopP,
	"default_top_k":             chat.DefaultSampling.TopK,
	"default_max_tokens":        chat.DefaultSampling.MaxTokens,
	"inference_timeout":         "120s",
	"inference_connect_timeout": "10s",
	"inference_stream_timeout":  "0s",
	"fallback_enabled":          true,
	"fallback_word_delay":       "20ms",
	"model_cache_ttl":           "30s",

	"redis_addr":           "",
	"redis_password":       "",
	"redis_db":             0,
	"redis_catalog_key":    "localai:models",
	"redis_probe_interval": "15s",

	"serialize_conversations": true,
	"shutdown_timeout":        "10s",

	"metrics_enabled": true,

	"otel_enabled":                false,
	"otel_service_name":           "localai-backend",
	"otel_environment":            "development",
	"otel_exporter_otlp_endpoint": "",
	"otel_exporter_otlp_insecure": false,
	"otel_exporter_otlp_headers":  "",
	"otel_sample_ratio":           1.0,
}

// LoadConfig reads .env (when present), the optional CONFIG_FILE and the
// environment, in increasing precedence. Every key accepts both the plain name
// and the LOCALAI_ prefixed name.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("could not load .env", "error", err)
	}

	v := viper.New()
	for key, val := range configDefaults {
		v.SetDefault(key, val)
		upper := strings.ToUpper(key)
		if err := v.BindEnv(key, envPrefix+"_"+upper, upper); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path := strings.TrimSpace(firstEnv("CONFIG_FILE", envPrefix+"_CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.BackendURL() == "" {
		return Config{}, fmt.Errorf("invalid config: no base url for inference provider %q", cfg.InferenceProvider)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.InferenceProvider = strings.ToLower(strings.TrimSpace(c.InferenceProvider))
	c.OllamaBaseURL = strings.TrimRight(strings.TrimSpace(c.OllamaBaseURL), "/")
	c.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAIBaseURL), "/")
	c.DefaultModel = strings.TrimSpace(c.DefaultModel)
	if c.InferenceStreamTimeout <= 0 {
		c.InferenceStreamTimeout = c.InferenceTimeout
	}

	origins := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	c.CORSOrigins = origins
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BackendURL is the base URL of the configured inference provider.
func (c Config) BackendURL() string {
	if c.InferenceProvider == "openai" {
		return c.OpenAIBaseURL
	}
	return c.OllamaBaseURL
}

func (c Config) Sampling() chat.SamplingParams {
	return chat.SamplingParams{
		Temperature: c.DefaultTemperature,
		TopP:        c.DefaultTopP,
		TopK:        c.DefaultTopK,
		MaxTokens:   c.DefaultMaxTokens,
	}
}

// OtelHeaderMap parses "k1=v1,k2=v2".
func (c Config) OtelHeaderMap() map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(c.OtelHeaders, ",") {
		k, val, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(val)
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			return v
		}
	}
	return ""
}
