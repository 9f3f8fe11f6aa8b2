package config

import "errors"

var (
	// ErrLoadConfig wraps failures reading the config file or environment.
	ErrLoadConfig = errors.New("load config failed")
	// ErrInvalidConfig marks values that load but cannot be used.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrWeakSecret marks a JWT secret that is the development default or too short
	// for a durable store. It is always reported together with ErrInvalidConfig.
	ErrWeakSecret = errors.New("weak jwt secret")
)
