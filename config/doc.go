// Package config loads service configuration from a YAML file, an optional
// .env file and the process environment, in that order of precedence from
// lowest to highest.
//
//	var cfg config.AppConfig
//	if err := config.LoadConfig("vidpipe", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
//
// Environment variables map onto nested keys by splitting on underscores:
// DATABASE_DSN sets database.dsn and QUEUE_REDIS_KEY sets queue.redis_key.
package config
