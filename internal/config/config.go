package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chat service. Values are read by
// viper from an optional config file and CHAT_-prefixed environment
// variables.
type Config struct {
	ServerAddr     string         `mapstructure:"SERVER_ADDR"`
	AllowedOrigins []string       `mapstructure:"ALLOWED_ORIGINS"`
	DatabaseDSN    string         `mapstructure:"DATABASE_DSN"`
	SigningSecret  string         `mapstructure:"SIGNING_SECRET"`
	Redis          RedisConfig    `mapstructure:"REDIS"`
	Presence       PresenceConfig `mapstructure:"PRESENCE"`
	Language       LanguageConfig `mapstructure:"LANGUAGE"`
	Bot            BotConfig      `mapstructure:"BOT"`
	WebSocket      WSConfig       `mapstructure:"WEBSOCKET"`

	// SigningKey is the decoded SigningSecret.
	SigningKey []byte `mapstructure:"-"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

type PresenceConfig struct {
	// TTL is the inactivity window after which a user is considered
	// offline.
	TTL time.Duration `mapstructure:"TTL"`
	// SweepInterval is how often the online snapshot is broadcast to the
	// users group.
	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`
}

type LanguageConfig struct {
	// Supported is the set of ISO 639-1 codes the classifier may return.
	Supported []string `mapstructure:"SUPPORTED"`
	// Default is returned when classification fails or is ambiguous.
	Default string `mapstructure:"DEFAULT"`
}

type BotConfig struct {
	// Username is the reserved pseudo-user answered by the responder.
	Username string `mapstructure:"USERNAME"`
}

type WSConfig struct {
	WriteWait      time.Duration `mapstructure:"WRITE_WAIT"`
	PongWait       time.Duration `mapstructure:"PONG_WAIT"`
	MaxMessageSize int64         `mapstructure:"MAX_MESSAGE_SIZE"`
}

// Load reads configuration from the file at path (optional) and the
// environment, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_ADDR", "localhost:8000")
	v.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SIGNING_SECRET", "")
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 1)
	v.SetDefault("PRESENCE.TTL", 2*time.Minute)
	v.SetDefault("PRESENCE.SWEEP_INTERVAL", 15*time.Second)
	v.SetDefault("LANGUAGE.SUPPORTED", []string{"en", "es", "uk", "it", "fr", "ru"})
	v.SetDefault("LANGUAGE.DEFAULT", "en")
	v.SetDefault("BOT.USERNAME", "chatbot")
	v.SetDefault("WEBSOCKET.WRITE_WAIT", 10*time.Second)
	v.SetDefault("WEBSOCKET.PONG_WAIT", 60*time.Second)
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE", 1024)

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	key, err := base64.StdEncoding.DecodeString(cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	cfg.SigningKey = key

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.SigningSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}
	if c.Presence.TTL <= 0 {
		return fmt.Errorf("presence TTL must be positive")
	}
	if c.Presence.SweepInterval <= 0 {
		return fmt.Errorf("presence sweep interval must be positive")
	}
	if len(c.Language.Supported) == 0 {
		return fmt.Errorf("supported language set cannot be empty")
	}
	var found bool
	for _, code := range c.Language.Supported {
		if code == c.Language.Default {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default language %q is not in the supported set", c.Language.Default)
	}
	if c.Bot.Username == "" {
		return fmt.Errorf("bot username cannot be empty")
	}
	return nil
}
