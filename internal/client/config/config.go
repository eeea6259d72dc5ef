package config

import (
	"fmt"
	"time"
)

// Storage backends accepted in StorageBackend.
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds runtime settings for the AuthKeeper CLI.
//
// Durations are time.Duration values; in JSON they may be written as "10s" or
// as integer nanoseconds, in the environment and flags as Go duration strings.
type Config struct {
	APIBaseURL     string        `env:"API_BASE_URL"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	StorageBackend string        `env:"STORAGE"`
	DatabaseDSN    string        `env:"DATABASE_DSN"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisKey       string        `env:"REDIS_KEY"`
	KeyFile        string        `env:"KEY_FILE"`
	CallbackAddr   string        `env:"CALLBACK_ADDR"`
	ResendCooldown time.Duration `env:"RESEND_COOLDOWN"`
	LogFormat      string        `env:"LOG_FORMAT"`
	LogLevel       string        `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with defaults suitable for a local backend.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000/fullstack_authentication"
	c.RequestTimeout = 10 * time.Second
	c.StorageBackend = StorageSQLite
	c.DatabaseDSN = "file:authkeeper.db?_pragma=busy_timeout(5000)"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisKey = "authkeeper"
	c.KeyFile = ""
	c.CallbackAddr = "127.0.0.1:5173"
	c.ResendCooldown = 60 * time.Second
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// Validate reports settings that would make the client unusable.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url is empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.ResendCooldown < 0 {
		return fmt.Errorf("resend cooldown must not be negative, got %s", c.ResendCooldown)
	}
	switch c.StorageBackend {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	return nil
}

// LoadConfig builds a Config from defaults, then a dotenv file, a JSON file,
// the AUTHKEEPER_* environment and finally args. Later sources win.
// args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseDotEnv(cfg, args); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
