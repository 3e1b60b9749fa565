package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Zitadel    ZitadelConfig
	Gateway    GatewayConfig
	RateLimit  RateLimitConfig
	Suno       SunoConfig
	Groq       GroqConfig
	OpenAI     OpenAIConfig
	R2         R2Config
	Database   DatabaseConfig
	Generation GenerationConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

type GatewayConfig struct {
	Enabled bool
}

type RateLimitConfig struct {
	GeneratePerHour int
	ChatPerMin      int
	CoverPerHour    int
}

// SunoConfig configures the song-generation provider.
type SunoConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	CallbackURL string
}

// GroqConfig configures the conversational assistant (OpenAI-compatible API).
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIConfig configures the image-generation provider used for cover art.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	ImageSize  string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type DatabaseConfig struct {
	Type  string
	DSN   string
	Debug bool
}

// GenerationConfig tunes the concurrent generation manager.
type GenerationConfig struct {
	MaxConcurrent    int
	PollInterval     time.Duration
	RemovalDelay     time.Duration
	MaxPollDuration  time.Duration
	PollRetries      int
	RetryBackoff     time.Duration
	ExpectedDuration time.Duration
	QueueLimit       int
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Env, "development")
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("SUNO_API_KEY")
	readSecret("GROQ_API_KEY")
	readSecret("OPENAI_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("DATABASE_DSN")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	bindings := map[string]string{
		"server.port":                  "SERVER_PORT",
		"server.env":                   "SERVER_ENV",
		"server.log_level":             "LOG_LEVEL",
		"server.api_domain":            "API_DOMAIN",
		"redis.addr":                   "REDIS_ADDR",
		"redis.password":               "REDIS_PASSWORD",
		"redis.db":                     "REDIS_DB",
		"jwt.secret":                   "JWT_SECRET",
		"jwt.expiration":               "JWT_EXPIRATION",
		"zitadel.domain":               "ZITADEL_DOMAIN",
		"zitadel.client_id":            "ZITADEL_CLIENT_ID",
		"zitadel.issuer":               "ZITADEL_ISSUER",
		"gateway.enabled":              "GATEWAY_ENABLED",
		"ratelimit.generate_per_hour":  "RATELIMIT_GENERATE_PER_HOUR",
		"ratelimit.chat_per_min":       "RATELIMIT_CHAT_PER_MIN",
		"ratelimit.cover_per_hour":     "RATELIMIT_COVER_PER_HOUR",
		"suno.api_key":                 "SUNO_API_KEY",
		"suno.base_url":                "SUNO_BASE_URL",
		"suno.model":                   "SUNO_MODEL",
		"suno.callback_url":            "SUNO_CALLBACK_URL",
		"groq.api_key":                 "GROQ_API_KEY",
		"groq.base_url":                "GROQ_BASE_URL",
		"groq.model":                   "GROQ_MODEL",
		"openai.api_key":               "OPENAI_API_KEY",
		"openai.base_url":              "OPENAI_BASE_URL",
		"openai.image_model":           "OPENAI_IMAGE_MODEL",
		"openai.image_size":            "OPENAI_IMAGE_SIZE",
		"r2.account_id":                "R2_ACCOUNT_ID",
		"r2.access_key_id":             "R2_ACCESS_KEY_ID",
		"r2.secret_access_key":         "R2_SECRET_ACCESS_KEY",
		"r2.bucket_name":               "R2_BUCKET_NAME",
		"r2.public_url":                "R2_PUBLIC_URL",
		"database.type":                "DATABASE_TYPE",
		"database.dsn":                 "DATABASE_DSN",
		"database.debug":               "DATABASE_DEBUG",
		"generation.max_concurrent":    "GENERATION_MAX_CONCURRENT",
		"generation.poll_interval":     "GENERATION_POLL_INTERVAL",
		"generation.removal_delay":     "GENERATION_REMOVAL_DELAY",
		"generation.max_poll_duration": "GENERATION_MAX_POLL_DURATION",
		"generation.poll_retries":      "GENERATION_POLL_RETRIES",
		"generation.retry_backoff":     "GENERATION_RETRY_BACKOFF",
		"generation.expected_duration": "GENERATION_EXPECTED_DURATION",
		"generation.queue_limit":       "GENERATION_QUEUE_LIMIT",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24)
	v.SetDefault("gateway.enabled", false)
	v.SetDefault("ratelimit.generate_per_hour", 30)
	v.SetDefault("ratelimit.chat_per_min", 30)
	v.SetDefault("ratelimit.cover_per_hour", 20)

	// Providers
	v.SetDefault("suno.base_url", "https://api.sunoapi.org")
	v.SetDefault("suno.model", "V4_5")
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.image_model", "dall-e-3")
	v.SetDefault("openai.image_size", "1024x1024")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "studio.db")
	v.SetDefault("database.debug", false)

	// Generation manager
	v.SetDefault("generation.max_concurrent", 10)
	v.SetDefault("generation.poll_interval", 3*time.Second)
	v.SetDefault("generation.removal_delay", 4*time.Second)
	v.SetDefault("generation.max_poll_duration", 20*time.Minute)
	v.SetDefault("generation.poll_retries", 0)
	v.SetDefault("generation.retry_backoff", 2*time.Second)
	v.SetDefault("generation.expected_duration", 8*time.Minute)
	v.SetDefault("generation.queue_limit", 1000)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			ApiDomain: v.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		Zitadel: ZitadelConfig{
			Domain:   v.GetString("zitadel.domain"),
			ClientID: v.GetString("zitadel.client_id"),
			Issuer:   v.GetString("zitadel.issuer"),
		},
		Gateway: GatewayConfig{
			Enabled: v.GetBool("gateway.enabled"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: v.GetInt("ratelimit.generate_per_hour"),
			ChatPerMin:      v.GetInt("ratelimit.chat_per_min"),
			CoverPerHour:    v.GetInt("ratelimit.cover_per_hour"),
		},
		Suno: SunoConfig{
			APIKey:      v.GetString("suno.api_key"),
			BaseURL:     v.GetString("suno.base_url"),
			Model:       v.GetString("suno.model"),
			CallbackURL: v.GetString("suno.callback_url"),
		},
		Groq: GroqConfig{
			APIKey:  v.GetString("groq.api_key"),
			BaseURL: v.GetString("groq.base_url"),
			Model:   v.GetString("groq.model"),
		},
		OpenAI: OpenAIConfig{
			APIKey:     v.GetString("openai.api_key"),
			BaseURL:    v.GetString("openai.base_url"),
			ImageModel: v.GetString("openai.image_model"),
			ImageSize:  v.GetString("openai.image_size"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
		Database: DatabaseConfig{
			Type:  v.GetString("database.type"),
			DSN:   v.GetString("database.dsn"),
			Debug: v.GetBool("database.debug"),
		},
		Generation: GenerationConfig{
			MaxConcurrent:    v.GetInt("generation.max_concurrent"),
			PollInterval:     v.GetDuration("generation.poll_interval"),
			RemovalDelay:     v.GetDuration("generation.removal_delay"),
			MaxPollDuration:  v.GetDuration("generation.max_poll_duration"),
			PollRetries:      v.GetInt("generation.poll_retries"),
			RetryBackoff:     v.GetDuration("generation.retry_backoff"),
			ExpectedDuration: v.GetDuration("generation.expected_duration"),
			QueueLimit:       v.GetInt("generation.queue_limit"),
		},
	}

	return cfg, nil
}
