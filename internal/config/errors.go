package config

import "errors"

// Sentinel error kinds. Validate wraps ErrInvalidConfig; file, env and
// decoding failures in Load wrap ErrLoadConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
