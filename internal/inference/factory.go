package inference

import (
	"fmt"
	"log/slog"
	"strings"
)

// ProviderBuilder constructs an Engine for a named provider. Registered by
// the cmd wiring so this package stays free of provider imports.
type ProviderBuilder func(logger *slog.Logger) (Engine, error)

// NewFromBuilders picks the builder for provider and wraps the result with a
// rate limiter. rps <= 0 disables limiting.
func NewFromBuilders(provider string, builders map[string]ProviderBuilder, rps float64, burst int, logger *slog.Logger) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(provider))
	build, ok := builders[key]
	if !ok {
		return nil, fmt.Errorf("unknown inference provider %q", provider)
	}
	eng, err := build(logger)
	if err != nil {
		return nil, err
	}
	return NewLimited(eng, rps, burst), nil
}
