// Package resolver implements the entity graph resolution engine: given a
// seed EIN and a depth limit it discovers related organizations from Form 990
// Schedule R disclosures and assembles a bounded, deduplicated relationship
// graph. Missing filings, unresolvable metadata, and flaky upstreams degrade
// individual nodes, never the whole request.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/signalpot/entitygraph/internal/config"
	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/metrics"
	"github.com/signalpot/entitygraph/internal/upstream"
)

// Service is the resolution engine exposed to the HTTP layer. It holds only
// immutable collaborators; every resolution request builds its own caches and
// tables, so no state leaks between requests.
type Service struct {
	metadataAPI upstream.MetadataAPI
	searchIndex upstream.SearchIndex
	filingStore upstream.FilingStore
	cfg         config.ResolverConfig
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewService constructs the resolution engine.
func NewService(
	metadataAPI upstream.MetadataAPI,
	searchIndex upstream.SearchIndex,
	filingStore upstream.FilingStore,
	cfg config.ResolverConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 5
	}
	return &Service{
		metadataAPI: metadataAPI,
		searchIndex: searchIndex,
		filingStore: filingStore,
		cfg:         cfg,
		logger:      logger,
		metrics:     m,
	}
}

// ResolveGraph resolves the relationship graph reachable from the seed EIN
// within the depth limit. The seed must be a well-formed EIN; a negative
// depth is rejected and a depth above the configured ceiling is clamped.
// Everything past input validation is best-effort: the only hard failures are
// malformed input.
func (s *Service) ResolveGraph(ctx context.Context, seedEIN string, depth int) (domain.Graph, error) {
	seed, err := domain.NormalizeEIN(seedEIN)
	if err != nil {
		return domain.Graph{}, err
	}
	if depth < 0 {
		return domain.Graph{}, fmt.Errorf("%w: depth %d", domain.ErrInvalidDepth, depth)
	}
	if depth > s.cfg.MaxDepth {
		depth = s.cfg.MaxDepth
	}

	if s.cfg.RequestDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestDeadline)
		defer cancel()
	}

	policy := policyFromConfig(s.cfg)

	metadata, err := newMetadataResolver(s.metadataAPI, s.cfg.CacheSize, policy, s.logger, s.metrics)
	if err != nil {
		return domain.Graph{}, err
	}
	locator, err := newFilingLocator(metadata, s.searchIndex, s.cfg.CacheSize, policy, s.logger, s.metrics)
	if err != nil {
		return domain.Graph{}, err
	}
	engine := &traversalEngine{
		metadata: metadata,
		locator:  locator,
		fetcher:  newDisclosureFetcher(s.filingStore, policy, s.logger, s.metrics),
		workers:  s.cfg.Workers,
		logger:   s.logger,
	}

	started := time.Now()
	state := engine.run(ctx, seed, depth)
	graph := assemble(state, seed)

	s.metrics.ObserveResolution(time.Since(started).Seconds(), len(graph.NodeOrder), graph.Truncated)
	s.logger.Info("graph resolved",
		"seed", seed,
		"depth", depth,
		"nodes", len(graph.NodeOrder),
		"edges", len(graph.Edges),
		"truncated", graph.Truncated,
	)
	return graph, nil
}

// MaxDepth reports the configured depth ceiling, used by the HTTP layer to
// describe clamping behaviour.
func (s *Service) MaxDepth() int {
	return s.cfg.MaxDepth
}
