// Package upstream contains the capability interfaces and transport clients
// for the three public data sources the resolver depends on: the ProPublica
// Nonprofit Explorer API (organization metadata and filing index), the IRS
// EFTS full-text search, and the IRS raw filing store on S3.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/signalpot/entitygraph/internal/config"
	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/metrics"
)

var (
	// ErrNotFound indicates the upstream has no record for the request.
	// Not retryable.
	ErrNotFound = errors.New("upstream record not found")

	// ErrUnavailable indicates a transient upstream failure. Callers retry
	// within their budget and then degrade the affected node.
	ErrUnavailable = errors.New("upstream unavailable")
)

// MetadataAPI resolves an EIN to organization metadata plus its filing index.
type MetadataAPI interface {
	Organization(ctx context.Context, ein string) (*OrgRecord, error)
}

// SearchIndex is the full-text search fallback used when the direct filing
// index misses.
type SearchIndex interface {
	FindFilings(ctx context.Context, ein string) ([]domain.FilingReference, error)
}

// FilingStore retrieves raw filing XML by object reference.
type FilingStore interface {
	Fetch(ctx context.Context, objectID string) ([]byte, error)
}

// OrgRecord is the combined metadata + filing-index record returned by the
// metadata API. Filings are ordered newest first.
type OrgRecord struct {
	Metadata domain.OrgMetadata
	Filings  []domain.FilingReference
}

// OrgSummary is a single name-search hit.
type OrgSummary struct {
	EIN   string `json:"ein"`
	Name  string `json:"name"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

// Transport wraps an HTTP client with the shared rate limiter and user agent
// applied to every upstream call. One Transport is shared by all three
// clients so the politeness budget covers them jointly.
type Transport struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	metrics   *metrics.Metrics
}

// NewTransport builds the shared transport from upstream configuration.
func NewTransport(cfg config.UpstreamConfig, m *metrics.Metrics) *Transport {
	limit := rate.Limit(cfg.RateLimitPerSec)
	if cfg.RateLimitPerSec <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &Transport{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.UserAgent,
		metrics:   m,
	}
}

// Do waits for a rate-limiter token and executes the request.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func (t *Transport) observe(service, outcome string) {
	t.metrics.ObserveUpstream(service, outcome)
}

func statusError(service string, status int) error {
	if status == http.StatusNotFound {
		return fmt.Errorf("%s: %w", service, ErrNotFound)
	}
	return fmt.Errorf("%s: %w (status %d)", service, ErrUnavailable, status)
}
