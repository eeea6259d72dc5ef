package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-t", "-s", "-d", "-r", "-k", "-l", "-cooldown", "-log-format", "-log-level"}

// parseFlags overlays cfg with command-line flags:
//
//	-a string          API base URL including the base path
//	-t duration        per-request timeout
//	-s string          storage backend (sqlite|redis|memory)
//	-d string          SQLite DSN
//	-r string          Redis address
//	-k string          key file for sealing stored values
//	-l string          OAuth callback listen address ("" disables it)
//	-cooldown duration resend-verification cooldown
//	-log-format string text, json or zap
//	-log-level string  debug, info, warn or error
//
// Unknown flags (such as -c and -e) are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("authkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base URL")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.StorageBackend, "s", cfg.StorageBackend, "storage backend (sqlite|redis|memory)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "SQLite DSN")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.KeyFile, "k", cfg.KeyFile, "key file for sealed storage")
	fs.StringVar(&cfg.CallbackAddr, "l", cfg.CallbackAddr, "OAuth callback listen address")
	fs.DurationVar(&cfg.ResendCooldown, "cooldown", cfg.ResendCooldown, "resend verification cooldown")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}
