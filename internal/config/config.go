// Package config loads the receptionist's configuration from the
// environment, the way the teacher service does: an optional .env file
// first, then envconfig over the process environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/tksa/ai-receptionist/internal/directory"
)

// Config holds all configuration for the receptionist service.
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Asterisk-shaped call-control bus
	ARIHost     string `envconfig:"ARI_HOST" default:"127.0.0.1"`
	ARIPort     int    `envconfig:"ARI_PORT" default:"5039"`
	ARIUser     string `envconfig:"ARI_USER" default:"xivo"`
	ARIPassword string `envconfig:"ARI_PASSWORD" default:""`
	ARIApp      string `envconfig:"ARI_APP" default:"receptionniste"`

	// AI provider (chat / TTS / STT)
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" required:"true"`
	ChatModel    string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	TTSModel     string `envconfig:"TTS_MODEL" default:"tts-1"`
	TTSVoice     string `envconfig:"TTS_VOICE" default:"nova"`
	STTModel     string `envconfig:"STT_MODEL" default:"whisper-1"`
	STTLanguage  string `envconfig:"STT_LANGUAGE" default:"fr"`

	// Company / directory
	CompanyName     string `envconfig:"COMPANY_NAME" default:"Toni Küpfer SA"`
	GreetingMessage string `envconfig:"GREETING_MESSAGE" default:"Bonjour et bienvenue. Quel service souhaitez-vous joindre ?"`
	RingTimeout     int    `envconfig:"RING_TIMEOUT" default:"3"`
	ServicesRaw     string `envconfig:"SERVICES" default:""`

	// Outbound webhook
	WebhookURL string `envconfig:"N8N_WEBHOOK_URL" default:""`

	// Filesystem
	AudioCacheDir string `envconfig:"AUDIO_CACHE_DIR" default:"/app/audio_cache"`
	RecordingsDir string `envconfig:"RECORDINGS_DIR" default:"/var/spool/asterisk/recording"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"`
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"5000"` // ms; not read anywhere: the ARI subscriber always waits its fixed 5s reconnectDelay

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`

	// Services is the parsed SERVICES directory, populated by Load.
	Services []directory.Service `ignored:"true"`
}

// ARIURL returns the base REST URL for the call-control bus.
func (c *Config) ARIURL() string {
	return fmt.Sprintf("http://%s:%d", c.ARIHost, c.ARIPort)
}

// ARIWebSocketURL returns the event-stream WebSocket URL.
func (c *Config) ARIWebSocketURL() string {
	return fmt.Sprintf("ws://%s:%d/ari/events?app=%s&api_key=%s:%s",
		c.ARIHost, c.ARIPort, c.ARIApp, c.ARIUser, c.ARIPassword)
}

// Load reads configuration from the environment. It first attempts to load
// a .env file (ignoring its absence), then from the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load()
}

// LoadFromEnv loads configuration directly from the environment without
// attempting to load a .env file (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	services, err := directory.Parse(cfg.ServicesRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVICES: %w", err)
	}
	cfg.Services = services

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
