package resolver

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/metrics"
	"github.com/signalpot/entitygraph/internal/upstream"
)

// metadataResolver resolves an EIN to its organization record with a cache
// scoped to one resolution request. The same organization is commonly reached
// through several paths before it is marked visited; the cache plus
// single-flight keeps that to one upstream call. Nothing here survives the
// request, so there is no cross-request staleness to manage.
type metadataResolver struct {
	api     upstream.MetadataAPI
	cache   *lru.Cache[string, orgCacheEntry]
	flight  singleflight.Group
	policy  retryPolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// orgCacheEntry memoizes outcomes, including not-found, so a missing org is
// not re-queried on every path that reaches it.
type orgCacheEntry struct {
	record *upstream.OrgRecord
	err    error
}

func newMetadataResolver(api upstream.MetadataAPI, cacheSize int, policy retryPolicy, logger *slog.Logger, m *metrics.Metrics) (*metadataResolver, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New[string, orgCacheEntry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}
	return &metadataResolver{
		api:     api,
		cache:   cache,
		policy:  policy,
		logger:  logger,
		metrics: m,
	}, nil
}

// Resolve returns descriptive metadata for the EIN. Failure never blocks
// traversal; callers downgrade the node instead.
func (r *metadataResolver) Resolve(ctx context.Context, ein string) (domain.OrgMetadata, error) {
	record, err := r.orgRecord(ctx, ein)
	if err != nil {
		return domain.OrgMetadata{}, err
	}
	return record.Metadata, nil
}

// orgRecord returns the full upstream record (metadata + filing index). The
// filing locator shares this lookup so one ProPublica call serves both
// concerns.
func (r *metadataResolver) orgRecord(ctx context.Context, ein string) (*upstream.OrgRecord, error) {
	if entry, ok := r.cache.Get(ein); ok {
		return entry.record, entry.err
	}

	value, err, _ := r.flight.Do(ein, func() (any, error) {
		record, err := retryUpstream(ctx, r.policy, "metadata", r.metrics, func() (*upstream.OrgRecord, error) {
			return r.api.Organization(ctx, ein)
		})
		r.cache.Add(ein, orgCacheEntry{record: record, err: err})
		if err != nil {
			r.logger.Debug("metadata resolution failed", "ein", ein, "error", err)
		}
		return record, err
	})
	if err != nil {
		return nil, err
	}
	return value.(*upstream.OrgRecord), nil
}
