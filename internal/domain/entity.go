package domain

// Completeness records how much of a node's upstream data was resolved.
type Completeness string

const (
	// CompletenessComplete means metadata and the latest filing both resolved.
	CompletenessComplete Completeness = "complete"
	// CompletenessPartial means the node was discovered but not fully
	// resolved, either because it sits on the depth boundary or because
	// metadata resolution failed.
	CompletenessPartial Completeness = "partial"
	// CompletenessNoFiling means no filing could be located or fetched for
	// the organization after exhausting retries.
	CompletenessNoFiling Completeness = "no-filing-found"
)

// EntityNode is one organization in a resolved relationship graph. A node is
// immutable once its completeness reaches CompletenessComplete; the traversal
// engine owns the node table and is the only writer.
type EntityNode struct {
	EIN              string       `json:"ein"`
	Name             string       `json:"name,omitempty"`
	Classification   string       `json:"classification,omitempty"`
	City             string       `json:"city,omitempty"`
	State            string       `json:"state,omitempty"`
	TotalRevenue     *int64       `json:"totalRevenue,omitempty"`
	LatestFilingYear int          `json:"latestFilingYear,omitempty"`
	Depth            int          `json:"depth"`
	Completeness     Completeness `json:"completeness"`
}

// OrgMetadata is the descriptive record returned by the metadata resolver.
type OrgMetadata struct {
	EIN              string
	Name             string
	Classification   string
	City             string
	State            string
	TotalRevenue     *int64
	LatestFilingYear int
}
