package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. It uses
// timex.Duration so intervals can be written as "10s" or as nanoseconds.
type JsonConfig struct {
	APIBaseURL     string         `json:"api_base_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	StorageBackend string         `json:"storage"`
	DatabaseDSN    string         `json:"database_dsn"`
	RedisAddr      string         `json:"redis_addr"`
	RedisKey       string         `json:"redis_key"`
	KeyFile        string         `json:"key_file"`
	CallbackAddr   string         `json:"callback_addr"`
	ResendCooldown timex.Duration `json:"resend_cooldown"`
	LogFormat      string         `json:"log_format"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config. Keys missing from
// the file keep their current values. No flag means no file.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	jc := JsonConfig{
		APIBaseURL:     cfg.APIBaseURL,
		RequestTimeout: timex.Duration{Duration: cfg.RequestTimeout},
		StorageBackend: cfg.StorageBackend,
		DatabaseDSN:    cfg.DatabaseDSN,
		RedisAddr:      cfg.RedisAddr,
		RedisKey:       cfg.RedisKey,
		KeyFile:        cfg.KeyFile,
		CallbackAddr:   cfg.CallbackAddr,
		ResendCooldown: timex.Duration{Duration: cfg.ResendCooldown},
		LogFormat:      cfg.LogFormat,
		LogLevel:       cfg.LogLevel,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.APIBaseURL = jc.APIBaseURL
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.StorageBackend = jc.StorageBackend
	cfg.DatabaseDSN = jc.DatabaseDSN
	cfg.RedisAddr = jc.RedisAddr
	cfg.RedisKey = jc.RedisKey
	cfg.KeyFile = jc.KeyFile
	cfg.CallbackAddr = jc.CallbackAddr
	cfg.ResendCooldown = jc.ResendCooldown.Duration
	cfg.LogFormat = jc.LogFormat
	cfg.LogLevel = jc.LogLevel
	return nil
}
