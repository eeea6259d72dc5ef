// Package config loads runtime configuration for the AuthKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional dotenv file: -e/-env, or ./.env when present.
//  3. Optional JSON file selected with -c or -config.
//  4. AUTHKEEPER_* environment variables.
//  5. Command-line flags, which override everything else.
//
// # JSON schema
//
//	{
//	  "api_base_url": "http://localhost:8000/fullstack_authentication",
//	  "request_timeout": "10s",
//	  "storage": "sqlite",
//	  "database_dsn": "file:authkeeper.db",
//	  "redis_addr": "127.0.0.1:6379",
//	  "key_file": "/home/me/.config/authkeeper/key",
//	  "callback_addr": "127.0.0.1:5173",
//	  "resend_cooldown": "60s",
//	  "log_format": "text",
//	  "log_level": "info"
//	}
//
// Environment variables use the same names upper-cased with the prefix, for
// example AUTHKEEPER_API_BASE_URL or AUTHKEEPER_STORAGE.
package config
