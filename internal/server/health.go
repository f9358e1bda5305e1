package server

import (
	"context"

	"github.com/signalpot/entitygraph/internal/graphstore"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// ArchiveHealthService verifies archive connectivity as part of health checks
// when an archive is configured. A nil client probes nothing: the resolver
// itself has no stateful dependencies to check.
type ArchiveHealthService struct {
	Client graphstore.Client
}

// Probe implements the HealthService interface.
func (s ArchiveHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}
