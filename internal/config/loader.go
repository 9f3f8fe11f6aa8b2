package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/mingle/internal/domain/ranking"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MINGLE_"

// minSecretLen is the HS256 secret length required outside the memory store.
const minSecretLen = 32

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MINGLE_CONFIG is set
//  3. env (prefix MINGLE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// MINGLE_STORE_DRIVER -> store_driver. Lists are comma separated.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "cors_allowed_origins" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that defaults alone cannot guarantee.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TopK < 1 || c.TopK > ranking.MaxTopK:
		return fmt.Errorf("%w: top_k must be between 1 and %d", ErrInvalidConfig, ranking.MaxTopK)
	case c.InterestWeight < 0 || c.SurveyWeight < 0:
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	case c.InterestPoints < 0 || c.MultiChoicePoints < 0 || c.SingleChoicePoints < 0:
		return fmt.Errorf("%w: point values must not be negative", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case StoreMemory, StoreBadger, StoreMongo, StorePostgres, StoreMySQL, StoreDynamo:
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	}
	if c.StoreDriver != StoreMemory && (c.JWTSecret == DevJWTSecret || len(c.JWTSecret) < minSecretLen) {
		return fmt.Errorf("%w: %w: jwt_secret must be a non-default value of at least %d bytes for store_driver %q",
			ErrInvalidConfig, ErrWeakSecret, minSecretLen, c.StoreDriver)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
