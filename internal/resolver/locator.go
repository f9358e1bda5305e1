package resolver

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/metrics"
	"github.com/signalpot/entitygraph/internal/upstream"
)

// filingLocator resolves an EIN to the filing references available for it,
// newest first. The direct index (the metadata record's filing list) is tried
// first; a full-text search over the upstream index is the fallback when the
// direct lookup misses or errors. Results are cached for the lifetime of the
// resolution request.
type filingLocator struct {
	metadata *metadataResolver
	search   upstream.SearchIndex
	cache    *lru.Cache[string, []domain.FilingReference]
	policy   retryPolicy
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func newFilingLocator(metadata *metadataResolver, search upstream.SearchIndex, cacheSize int, policy retryPolicy, logger *slog.Logger, m *metrics.Metrics) (*filingLocator, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New[string, []domain.FilingReference](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create locator cache: %w", err)
	}
	return &filingLocator{
		metadata: metadata,
		search:   search,
		cache:    cache,
		policy:   policy,
		logger:   logger,
		metrics:  m,
	}, nil
}

// Locate returns the known filing references for the EIN, most recent first,
// or an empty slice when none can be found. Upstream failure is never fatal
// to the traversal: after the retry budget is spent the locator reports no
// filings and the node is recorded as no-filing-found.
func (l *filingLocator) Locate(ctx context.Context, ein string) []domain.FilingReference {
	if refs, ok := l.cache.Get(ein); ok {
		return refs
	}

	refs := l.direct(ctx, ein)
	if len(refs) == 0 {
		refs = l.fallback(ctx, ein)
	}

	l.cache.Add(ein, refs)
	return refs
}

func (l *filingLocator) direct(ctx context.Context, ein string) []domain.FilingReference {
	record, err := l.metadata.orgRecord(ctx, ein)
	if err != nil {
		l.logger.Debug("direct filing index miss", "ein", ein, "error", err)
		return nil
	}
	return record.Filings
}

func (l *filingLocator) fallback(ctx context.Context, ein string) []domain.FilingReference {
	refs, err := retryUpstream(ctx, l.policy, "search", l.metrics, func() ([]domain.FilingReference, error) {
		return l.search.FindFilings(ctx, ein)
	})
	if err != nil {
		l.logger.Warn("filing search fallback failed", "ein", ein, "error", err)
		return nil
	}
	return refs
}
