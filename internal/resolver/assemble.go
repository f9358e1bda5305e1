package resolver

import (
	"github.com/signalpot/entitygraph/internal/domain"
)

// assemble normalizes the accumulated tables into the externally consumed
// graph. Pure transformation: no network, no mutable engine state.
func assemble(st *traversalState, seed string) domain.Graph {
	graph := domain.Graph{
		RootEIN:   seed,
		Nodes:     make(map[string]*domain.EntityNode, len(st.nodes)),
		NodeOrder: make([]string, 0, len(st.order)),
		Edges:     st.edges,
		Truncated: st.truncated,
	}
	if graph.Edges == nil {
		graph.Edges = []domain.RelationshipEdge{}
	}

	for _, ein := range st.order {
		node := st.nodes[ein]
		graph.Nodes[ein] = node
		graph.NodeOrder = append(graph.NodeOrder, ein)
		if node.Depth > graph.DepthReached {
			graph.DepthReached = node.Depth
		}
	}
	return graph
}
