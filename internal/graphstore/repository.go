package graphstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalpot/entitygraph/internal/domain"
)

// Repository encapsulates archive persistence operations for resolved graphs.
type Repository struct {
	client Client
	nowFn  func() time.Time
}

// New instantiates a Repository backed by the supplied graph client.
func New(client Client) *Repository {
	return &Repository{
		client: client,
		nowFn:  time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (r *Repository) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		r.nowFn = nowFn
	}
}

const archiveNodesCypher = `
UNWIND $nodes AS node
MERGE (o:Organization {ein: node.ein})
SET o.name = node.name,
    o.classification = node.classification,
    o.city = node.city,
    o.state = node.state,
    o.latestFilingYear = node.latestFilingYear,
    o.completeness = node.completeness,
    o.lastResolvedAt = $resolvedAt
`

const archiveEdgesCypher = `
UNWIND $edges AS edge
MATCH (src:Organization {ein: edge.sourceEin})
MATCH (dst:Organization {ein: edge.targetEin})
MERGE (src)-[r:RELATED_TO {kind: edge.kind}]->(dst)
SET r.amount = edge.amount,
    r.filingYear = edge.filingYear,
    r.objectId = edge.objectId,
    r.lastResolvedAt = $resolvedAt
`

// ArchiveGraph mirrors one resolved graph into the archive. Nodes are merged
// by EIN and relationships by (source, target, kind), so re-resolving the
// same network refreshes rather than duplicates it.
func (r *Repository) ArchiveGraph(ctx context.Context, graph domain.Graph) error {
	if graph.RootEIN == "" {
		return errors.New("graph root EIN is required")
	}

	resolvedAt := r.nowFn().UTC().Format(time.RFC3339)

	nodes := make([]map[string]any, 0, len(graph.NodeOrder))
	for _, ein := range graph.NodeOrder {
		node := graph.Nodes[ein]
		if node == nil {
			continue
		}
		nodes = append(nodes, map[string]any{
			"ein":              node.EIN,
			"name":             node.Name,
			"classification":   node.Classification,
			"city":             node.City,
			"state":            node.State,
			"latestFilingYear": node.LatestFilingYear,
			"completeness":     string(node.Completeness),
		})
	}

	if _, err := r.client.ExecuteWrite(ctx, archiveNodesCypher, map[string]any{
		"nodes":      nodes,
		"resolvedAt": resolvedAt,
	}); err != nil {
		return fmt.Errorf("archive nodes for %s: %w", graph.RootEIN, err)
	}

	if len(graph.Edges) == 0 {
		return nil
	}

	edges := make([]map[string]any, 0, len(graph.Edges))
	for _, edge := range graph.Edges {
		var amount any
		if edge.Amount != nil {
			amount = *edge.Amount
		}
		edges = append(edges, map[string]any{
			"sourceEin":  edge.SourceEIN,
			"targetEin":  edge.TargetEIN,
			"kind":       string(edge.Kind),
			"amount":     amount,
			"filingYear": edge.FilingYear,
			"objectId":   edge.ObjectID,
		})
	}

	if _, err := r.client.ExecuteWrite(ctx, archiveEdgesCypher, map[string]any{
		"edges":      edges,
		"resolvedAt": resolvedAt,
	}); err != nil {
		return fmt.Errorf("archive edges for %s: %w", graph.RootEIN, err)
	}
	return nil
}

const countOrganizationsCypher = `
MATCH (o:Organization)
RETURN count(o) AS total
`

// OrganizationCount reports how many organizations the archive currently holds.
func (r *Repository) OrganizationCount(ctx context.Context) (int64, error) {
	res, err := r.client.ExecuteRead(ctx, countOrganizationsCypher, nil)
	if err != nil {
		return 0, fmt.Errorf("count organizations: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	switch v := res.Records[0]["total"].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, nil
	}
}
