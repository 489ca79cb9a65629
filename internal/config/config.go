// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvProduction is the production environment name.
	EnvProduction = "production"

	defaultJWTSecret = "development-secret-change-in-production"
)

// Config holds all configuration for the application.
type Config struct {
	Environment string

	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	CORSOrigins        []string

	// Database settings
	DatabaseDriver string
	DatabaseURL    string
	AutoMigrate    bool

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicModel  string
	DefaultLLM      string
	LLMTimeout      time.Duration

	// Webhook settings
	WhatsAppWebhookSecret  string
	FacebookWebhookSecret  string
	InstagramWebhookSecret string
	WhatsAppVerifyToken    string
	WebhookMaxBodyBytes    int64

	// Notification settings
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	PushAMQPURL       string
	PushExchange      string
	TelegramBotToken  string
	TelegramChatID    int64
	HighValueLeadMin  float64

	// Rate limiting
	RateLimitRequests        int
	RateLimitWindow          time.Duration
	WebhookRateLimitRequests int

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENV", "development"),

		// Server
		ServerPort:         getEnv("PORT", "8000"),
		ServerReadTimeout:  envAs("SERVER_READ_TIMEOUT", 30*time.Second, time.ParseDuration),
		ServerWriteTimeout: envAs("SERVER_WRITE_TIMEOUT", 120*time.Second, time.ParseDuration),
		CORSOrigins:        envAs("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}, parseList),

		// Database
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "omnilead.db"),
		AutoMigrate:    envAs("DATABASE_AUTO_MIGRATE", true, strconv.ParseBool),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiration: envAs("JWT_EXPIRATION", 30*time.Minute, time.ParseDuration),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),
		LLMTimeout:      envAs("LLM_TIMEOUT", 30*time.Second, time.ParseDuration),

		// Webhooks
		WhatsAppWebhookSecret:  getEnv("WHATSAPP_WEBHOOK_SECRET", ""),
		FacebookWebhookSecret:  getEnv("FACEBOOK_WEBHOOK_SECRET", ""),
		InstagramWebhookSecret: getEnv("INSTAGRAM_WEBHOOK_SECRET", ""),
		WhatsAppVerifyToken:    getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WebhookMaxBodyBytes:    int64(envAs("WEBHOOK_MAX_BODY_BYTES", 1<<20, strconv.Atoi)),

		// Notifications
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          envAs("SMTP_PORT", 587, strconv.Atoi),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@omnilead.com"),
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
		PushAMQPURL:       getEnv("PUSH_AMQP_URL", ""),
		PushExchange:      getEnv("PUSH_EXCHANGE", "omnilead.notifications"),
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:    envAs("TELEGRAM_CHAT_ID", int64(0), parseInt64),
		HighValueLeadMin:  envAs("HIGH_VALUE_LEAD_MIN_SCORE", 0.7, parseFloat),

		// Rate limiting
		RateLimitRequests:        envAs("RATE_LIMIT_REQUESTS", 60, strconv.Atoi),
		RateLimitWindow:          envAs("RATE_LIMIT_WINDOW", time.Minute, time.ParseDuration),
		WebhookRateLimitRequests: envAs("WEBHOOK_RATE_LIMIT_REQUESTS", 600, strconv.Atoi),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  envAs("TRACING_ENABLED", false, strconv.ParseBool),
	}
}

// Validate rejects configurations that are unsafe to run.
func (c *Config) Validate() error {
	if c.DatabaseDriver != "pgx" && c.DatabaseDriver != "sqlite" {
		return errors.New("DATABASE_DRIVER must be pgx or sqlite")
	}
	if c.Environment == EnvProduction && (c.JWTSecret == defaultJWTSecret || c.JWTSecret == "") {
		return errors.New("JWT_SECRET must be set to a secure value in production")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func getEnv(key, fallback string) string {
	return envAs(key, fallback, func(v string) (string, error) { return v, nil })
}

// envAs parses the variable named key, keeping fallback when it is unset or invalid.
func envAs[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

func parseInt64(s string) (int64, error)   { return strconv.ParseInt(s, 10, 64) }
func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
func parseList(s string) ([]string, error) {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
