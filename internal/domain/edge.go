package domain

// RelationKind enumerates the closed set of relationship classifications
// derived from Schedule R. Unrecognized disclosures map to KindOther rather
// than failing the parse.
type RelationKind string

const (
	KindParent        RelationKind = "parent"
	KindSubordinate   RelationKind = "subordinate"
	KindSupportingOrg RelationKind = "supporting-organization"
	KindControlled    RelationKind = "controlled-entity"
	KindOther         RelationKind = "other"
)

// RelationshipEdge is a directed relationship disclosed by the source
// organization's filing. Edges are append-only; duplicates with the same
// (source, target, kind) identity are dropped, never merged.
type RelationshipEdge struct {
	SourceEIN string       `json:"sourceEin"`
	TargetEIN string       `json:"targetEin"`
	Kind      RelationKind `json:"kind"`

	// Amount is the disclosed transaction amount, when present. A nil
	// Amount means the filing did not disclose one; it is never conflated
	// with a zero-value transaction.
	Amount *float64 `json:"amount,omitempty"`

	// DisclosedName is the related organization's name as written on the
	// filing. Used to label boundary nodes whose metadata is never fetched.
	DisclosedName string `json:"disclosedName,omitempty"`

	// Provenance: the filing the edge was extracted from.
	FilingYear int    `json:"filingYear,omitempty"`
	ObjectID   string `json:"objectId,omitempty"`
}

// Identity returns the dedup key for the edge.
func (e RelationshipEdge) Identity() EdgeIdentity {
	return EdgeIdentity{Source: e.SourceEIN, Target: e.TargetEIN, Kind: e.Kind}
}

// EdgeIdentity is the comparable dedup key for relationship edges.
type EdgeIdentity struct {
	Source string
	Target string
	Kind   RelationKind
}
