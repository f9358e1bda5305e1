package resolver

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/schedr"
)

// traversalEngine drives the breadth-first expansion from the seed EIN. One
// engine instance serves exactly one resolution request and owns the
// request-scoped node, edge, and visited tables.
//
// Each depth level fans out across bounded workers, but workers never touch
// the shared tables: every worker produces an immutable expansion result, and
// after the level barrier the results are merged single-threaded in frontier
// order. That makes "mark visited" and "enqueue next frontier" trivially
// atomic and keeps output deterministic for deterministic upstreams.
type traversalEngine struct {
	metadata *metadataResolver
	locator  *filingLocator
	fetcher  *disclosureFetcher
	workers  int
	logger   *slog.Logger
}

// expansion is the result of expanding one identifier. Produced by a worker,
// consumed by the merge step.
type expansion struct {
	ein      string
	metadata *domain.OrgMetadata
	edges    []domain.RelationshipEdge
	skipped  int
	year     int
	fetched  bool
	aborted  bool
}

// traversalState holds the per-request tables. Only the merge step writes to
// it, always from a single goroutine.
type traversalState struct {
	nodes     map[string]*domain.EntityNode
	order     []string
	edges     []domain.RelationshipEdge
	edgeSeen  map[domain.EdgeIdentity]struct{}
	visited   map[string]struct{}
	enqueued  map[string]struct{}
	next      []string
	truncated bool
}

func newTraversalState(seed string) *traversalState {
	st := &traversalState{
		nodes:    make(map[string]*domain.EntityNode),
		edgeSeen: make(map[domain.EdgeIdentity]struct{}),
		visited:  make(map[string]struct{}),
		enqueued: make(map[string]struct{}),
	}
	st.addNode(seed, 0, "")
	st.enqueue(seed)
	return st
}

func (st *traversalState) addNode(ein string, depth int, disclosedName string) *domain.EntityNode {
	if node, ok := st.nodes[ein]; ok {
		// Depth is the minimum over every discovery path. All other
		// fields are first-write-wins, and a complete node is immutable.
		if depth < node.Depth {
			node.Depth = depth
		}
		if node.Completeness != domain.CompletenessComplete && node.Name == "" && disclosedName != "" {
			node.Name = disclosedName
		}
		return node
	}
	node := &domain.EntityNode{
		EIN:          ein,
		Name:         disclosedName,
		Depth:        depth,
		Completeness: domain.CompletenessPartial,
	}
	st.nodes[ein] = node
	st.order = append(st.order, ein)
	return node
}

func (st *traversalState) enqueue(ein string) {
	if _, ok := st.visited[ein]; ok {
		return
	}
	if _, ok := st.enqueued[ein]; ok {
		return
	}
	st.enqueued[ein] = struct{}{}
	st.next = append(st.next, ein)
}

// run executes the bounded traversal. Levels 0..depthLimit-1 are expanded;
// identifiers discovered at the boundary depth are recorded but left
// unexpanded with partial completeness.
func (e *traversalEngine) run(ctx context.Context, seed string, depthLimit int) *traversalState {
	st := newTraversalState(seed)

	for level := 0; level < depthLimit; level++ {
		frontier := st.next
		st.next = nil
		if len(frontier) == 0 {
			break
		}
		if ctx.Err() != nil {
			st.truncated = true
			break
		}

		// The whole frontier is being expanded now; marking it visited
		// before the fan-out means nothing merged at this level can
		// re-enqueue one of its own members.
		for _, ein := range frontier {
			st.visited[ein] = struct{}{}
		}

		results := make([]*expansion, len(frontier))
		group := new(errgroup.Group)
		group.SetLimit(e.workers)
		for i, ein := range frontier {
			i, ein := i, ein
			group.Go(func() error {
				results[i] = e.expand(ctx, ein)
				return nil
			})
		}
		_ = group.Wait()

		for i, exp := range results {
			e.merge(st, exp, frontier[i], level)
		}

		// The deadline can expire during the last level's expansions, after
		// every per-expansion check has already passed.
		if ctx.Err() != nil {
			st.truncated = true
		}
		if st.truncated {
			break
		}
	}

	return st
}

// expand resolves one identifier: metadata, filing location, fetch, parse.
// It runs concurrently with other expansions and touches no shared state.
func (e *traversalEngine) expand(ctx context.Context, ein string) *expansion {
	exp := &expansion{ein: ein}
	if ctx.Err() != nil {
		exp.aborted = true
		return exp
	}

	if md, err := e.metadata.Resolve(ctx, ein); err == nil {
		exp.metadata = &md
	} else if ctx.Err() != nil {
		exp.aborted = true
		return exp
	}

	refs := e.locator.Locate(ctx, ein)
	if ctx.Err() != nil {
		exp.aborted = true
		return exp
	}

	// Try filings newest first until one fetches and parses. Older filings
	// are a legitimate fallback when the latest object ID is stale.
	for _, ref := range refs {
		raw, err := e.fetcher.Fetch(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				exp.aborted = true
				return exp
			}
			continue
		}
		result, err := schedr.Parse(ein, ref.ObjectID, raw)
		if err != nil {
			e.logger.Warn("malformed filing skipped",
				"ein", ein,
				"objectId", ref.ObjectID,
				"error", err,
			)
			continue
		}
		exp.fetched = true
		exp.edges = result.Edges
		exp.skipped = result.Skipped
		exp.year = result.TaxYear
		if exp.year == 0 {
			exp.year = ref.TaxYear
		}
		break
	}

	return exp
}

// merge folds one expansion into the shared tables. Runs single-threaded
// after the level barrier, in frontier order.
func (e *traversalEngine) merge(st *traversalState, exp *expansion, ein string, level int) {
	if exp == nil {
		exp = &expansion{ein: ein}
	}
	if exp.aborted {
		// The deadline cut this expansion short. The node stays partial
		// rather than claiming its filings are known to be missing.
		st.truncated = true
		return
	}

	node := st.nodes[ein]
	if exp.metadata != nil {
		md := exp.metadata
		if node.Name == "" || md.Name != "" {
			node.Name = md.Name
		}
		node.Classification = md.Classification
		node.City = md.City
		node.State = md.State
		node.TotalRevenue = md.TotalRevenue
		node.LatestFilingYear = md.LatestFilingYear
	}
	if exp.year > node.LatestFilingYear {
		node.LatestFilingYear = exp.year
	}

	switch {
	case exp.fetched && exp.metadata != nil:
		node.Completeness = domain.CompletenessComplete
	case exp.fetched:
		node.Completeness = domain.CompletenessPartial
	default:
		node.Completeness = domain.CompletenessNoFiling
	}

	if exp.skipped > 0 {
		e.logger.Warn("skipped malformed relationship entries",
			"ein", ein,
			"count", exp.skipped,
		)
	}

	for _, edge := range exp.edges {
		if _, ok := st.edgeSeen[edge.Identity()]; ok {
			continue
		}
		st.edgeSeen[edge.Identity()] = struct{}{}
		st.edges = append(st.edges, edge)

		st.addNode(edge.TargetEIN, level+1, edge.DisclosedName)
		if !st.truncated {
			st.enqueue(edge.TargetEIN)
		}
	}
}
