// Package ollama serves chat inference from a local Ollama daemon.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/envconfig"

	modelpkg "github.com/cexll/mcpbridge/pkg/model"
)

// ProviderName is the tag the provider registers under.
const ProviderName = "ollama"

// Ensure Provider satisfies the model.Provider interface at compile time.
var _ modelpkg.Provider = (*Provider)(nil)

// Provider wires Ollama-backed models into the model factory.
type Provider struct {
	// HTTPClient defaults to a client without a timeout; callers bound each
	// request through its context.
	HTTPClient *http.Client
}

// Name advertises the provider identifier used by the factory.
func (p *Provider) Name() string {
	return ProviderName
}

// NewModel materializes a Model configured according to cfg. An empty
// BaseURL defers to OLLAMA_HOST and the daemon's default address.
func (p *Provider) NewModel(ctx context.Context, cfg modelpkg.ModelConfig) (modelpkg.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(cfg.Model)
	if name == "" {
		return nil, errors.New("ollama model name is required")
	}

	base, err := resolveBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := p.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if len(cfg.Headers) > 0 {
		clone := *httpClient
		clone.Transport = headerTransport{base: httpClient.Transport, headers: cfg.Headers}
		httpClient = &clone
	}

	return &Model{
		client: httpClient,
		base:   base,
		model:  name,
		opts:   parseModelOptions(cfg.Extra),
	}, nil
}

// resolveBaseURL validates the raw address before normalising it, so a
// bare scheme such as "http://" is rejected rather than re-prefixed.
func resolveBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return envconfig.Host(), nil
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid ollama base url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		if strings.TrimSpace(k) == "" || v == "" {
			continue
		}
		clone.Header.Set(k, v)
	}
	return base.RoundTrip(clone)
}
