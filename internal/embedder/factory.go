package embedder

import (
	"fmt"

	"github.com/vectralab/codelens/internal/config"
)

// New builds the configured embedding provider with a shared cache.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	cache := NewCache(cfg.CacheSize)

	switch cfg.Provider {
	case "http":
		return NewHTTPProvider(HTTPConfig{
			Endpoint:          cfg.Endpoint,
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			Dimension:         cfg.Dimension,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Cache:             cache,
		})
	case "local", "":
		return NewLocalProvider(cfg.Dimension, cache), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, cfg.Provider)
	}
}
