package narrative

import (
	"context"
	"fmt"

	"fairhire/internal/config"
	"fairhire/internal/errors"
)

// New builds the narrator named by cfg.Provider. It returns nil without error
// when narratives are disabled.
func New(ctx context.Context, cfg config.NarrativeConfig, logger *errors.Logger) (Narrator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	logger.Debug("Initializing narrative service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries,
		"circuit_breaker", cfg.CircuitBreaker.Enabled)

	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiNarrator(ctx, cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported narrative provider: %s", cfg.Provider), nil)
	}
}
