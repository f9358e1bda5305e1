package resolver

import (
	"context"
	"log/slog"

	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/metrics"
	"github.com/signalpot/entitygraph/internal/upstream"
)

// disclosureFetcher retrieves raw filing content for a reference, retrying
// transient store failures within the configured budget. A missing document
// is a permanent miss, not a retryable condition.
type disclosureFetcher struct {
	store   upstream.FilingStore
	policy  retryPolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newDisclosureFetcher(store upstream.FilingStore, policy retryPolicy, logger *slog.Logger, m *metrics.Metrics) *disclosureFetcher {
	return &disclosureFetcher{
		store:   store,
		policy:  policy,
		logger:  logger,
		metrics: m,
	}
}

// Fetch returns the raw filing bytes for the reference or a typed failure
// once the retry budget is spent.
func (f *disclosureFetcher) Fetch(ctx context.Context, ref domain.FilingReference) ([]byte, error) {
	raw, err := retryUpstream(ctx, f.policy, "fetch", f.metrics, func() ([]byte, error) {
		return f.store.Fetch(ctx, ref.ObjectID)
	})
	if err != nil {
		f.logger.Debug("filing fetch failed",
			"objectId", ref.ObjectID,
			"ein", ref.OwnerEIN,
			"error", err,
		)
		return nil, err
	}
	return raw, nil
}
