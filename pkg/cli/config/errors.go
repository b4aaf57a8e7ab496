package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound     = goerr.New("configuration file not found")
	ErrInvalidConfig      = goerr.New("invalid configuration")
	ErrInvalidThreshold   = goerr.New("threshold must be between 0 and 1")
	ErrInvalidLimit       = goerr.New("limit must be positive")
	ErrUnknownBackend     = goerr.New("unknown repository backend")
	ErrUnknownProvider    = goerr.New("unknown model provider")
	ErrMissingCredentials = goerr.New("missing credentials")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	SectionKey    = "section"
	FieldKey      = "field"
	ValueKey      = "value"
)
