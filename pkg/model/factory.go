package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownProvider is returned for provider tags nobody registered.
var ErrUnknownProvider = errors.New("model provider is not registered")

// Factory holds the registered Provider implementations and creates models
// on demand.
type Factory struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewFactory constructs a factory seeded with the provided providers. Tags
// are case-insensitive and a later provider replaces an earlier one with the
// same tag.
func NewFactory(providers ...Provider) *Factory {
	f := &Factory{
		providers: make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		f.providers[strings.ToLower(p.Name())] = p
	}
	return f
}

// Providers lists the registered provider tags.
func (f *Factory) Providers() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.providers))
	for name := range f.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewModel builds a model instance through the provider declared in cfg.
func (f *Factory) NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	tag := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if tag == "" {
		return nil, fmt.Errorf("model provider not specified")
	}

	f.mu.RLock()
	provider := f.providers[tag]
	f.mu.RUnlock()
	if provider == nil {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownProvider, cfg.Provider, strings.Join(f.Providers(), ", "))
	}

	return provider.NewModel(ctx, cfg)
}
