package domain

// FilingReference points at one filing document in the upstream store.
// References are ephemeral: produced by the filing locator, consumed by the
// disclosure fetcher, and discarded once the filing is parsed.
type FilingReference struct {
	ObjectID string
	TaxYear  int
	OwnerEIN string
}

// Graph is the externally consumed result of a resolution request. Nodes are
// keyed by canonical EIN; NodeOrder and Edges preserve first-discovery order
// so identical upstream responses produce identical output.
type Graph struct {
	RootEIN   string                 `json:"rootEin"`
	Nodes     map[string]*EntityNode `json:"nodes"`
	NodeOrder []string               `json:"nodeOrder"`
	Edges     []RelationshipEdge     `json:"edges"`

	// Truncated is set when the request deadline expired before the
	// traversal finished; the graph is the best-effort partial result.
	Truncated bool `json:"truncated"`

	// DepthReached is the deepest level at which a node was recorded.
	DepthReached int `json:"depthReached"`
}
