package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/graphstore"
	"github.com/signalpot/entitygraph/internal/resolver"
	"github.com/signalpot/entitygraph/internal/upstream"
)

// NameSearcher is the pass-through name search used before a full lookup.
type NameSearcher interface {
	Search(ctx context.Context, name string) ([]upstream.OrgSummary, error)
}

// ConnectivityChecker probes the upstream services end to end.
type ConnectivityChecker interface {
	Check(ctx context.Context) map[string]upstream.ServiceStatus
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger   *slog.Logger
	resolver *resolver.Service
	searcher NameSearcher
	debug    ConnectivityChecker
	archive  *graphstore.Repository
}

// NewAPIHandlers constructs an APIHandlers instance. The archive repository
// may be nil, in which case resolved graphs are not mirrored anywhere.
func NewAPIHandlers(logger *slog.Logger, svc *resolver.Service, searcher NameSearcher, debug ConnectivityChecker, archive *graphstore.Repository) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		resolver: svc,
		searcher: searcher,
		debug:    debug,
		archive:  archive,
	}
}

func (h *APIHandlers) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload lookupRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.EIN == "" {
		writeError(w, http.StatusBadRequest, "ein is required")
		return
	}

	depth := 1
	if payload.Depth != nil {
		depth = *payload.Depth
	}

	graph, err := h.resolver.ResolveGraph(r.Context(), payload.EIN, depth)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidEIN), errors.Is(err, domain.ErrInvalidDepth):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("graph resolution failed", "ein", payload.EIN, "error", err)
			writeError(w, http.StatusInternalServerError, "graph resolution failed")
		}
		return
	}

	h.archiveGraph(graph)
	respondJSON(w, http.StatusOK, buildGraphResponse(graph))
}

func (h *APIHandlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	results, err := h.searcher.Search(r.Context(), name)
	if err != nil {
		h.logger.Error("name search failed", "name", name, "error", err)
		writeError(w, http.StatusBadGateway, "name search failed")
		return
	}
	if len(results) > 10 {
		results = results[:10]
	}

	respondJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (h *APIHandlers) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if h.debug == nil {
		writeError(w, http.StatusNotFound, "connectivity probe not configured")
		return
	}
	respondJSON(w, http.StatusOK, h.debug.Check(r.Context()))
}

// archiveGraph mirrors the resolved graph into the archive without blocking
// the response. Archive failures are logged, never surfaced to the caller.
func (h *APIHandlers) archiveGraph(graph domain.Graph) {
	if h.archive == nil || len(graph.NodeOrder) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.archive.ArchiveGraph(ctx, graph); err != nil {
			h.logger.Warn("graph archive failed", "root", graph.RootEIN, "error", err)
		}
	}()
}

// --- Request & Response DTOs ---

type lookupRequest struct {
	EIN   string `json:"ein"`
	Depth *int   `json:"depth"`
}

type graphResponse struct {
	RootEIN       string         `json:"rootEin"`
	Nodes         []nodeResponse `json:"nodes"`
	Edges         []edgeResponse `json:"edges"`
	Truncated     bool           `json:"truncated"`
	DepthReached  int            `json:"depthReached"`
	TotalEntities int            `json:"totalEntities"`
}

type nodeResponse struct {
	EIN              string `json:"ein"`
	Name             string `json:"name,omitempty"`
	Classification   string `json:"classification,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	TotalRevenue     *int64 `json:"totalRevenue,omitempty"`
	LatestFilingYear int    `json:"latestFilingYear,omitempty"`
	Depth            int    `json:"depth"`
	Completeness     string `json:"completeness"`
}

type edgeResponse struct {
	SourceEIN  string   `json:"sourceEin"`
	TargetEIN  string   `json:"targetEin"`
	Kind       string   `json:"kind"`
	Amount     *float64 `json:"amount,omitempty"`
	FilingYear int      `json:"filingYear,omitempty"`
	ObjectID   string   `json:"objectId,omitempty"`
}

type searchResponse struct {
	Results []upstream.OrgSummary `json:"results"`
}

func buildGraphResponse(graph domain.Graph) graphResponse {
	resp := graphResponse{
		RootEIN:       domain.FormatEIN(graph.RootEIN),
		Nodes:         make([]nodeResponse, 0, len(graph.NodeOrder)),
		Edges:         make([]edgeResponse, 0, len(graph.Edges)),
		Truncated:     graph.Truncated,
		DepthReached:  graph.DepthReached,
		TotalEntities: len(graph.NodeOrder),
	}

	for _, ein := range graph.NodeOrder {
		node := graph.Nodes[ein]
		if node == nil {
			continue
		}
		resp.Nodes = append(resp.Nodes, nodeResponse{
			EIN:              domain.FormatEIN(node.EIN),
			Name:             node.Name,
			Classification:   node.Classification,
			City:             node.City,
			State:            node.State,
			TotalRevenue:     node.TotalRevenue,
			LatestFilingYear: node.LatestFilingYear,
			Depth:            node.Depth,
			Completeness:     string(node.Completeness),
		})
	}

	for _, edge := range graph.Edges {
		resp.Edges = append(resp.Edges, edgeResponse{
			SourceEIN:  domain.FormatEIN(edge.SourceEIN),
			TargetEIN:  domain.FormatEIN(edge.TargetEIN),
			Kind:       string(edge.Kind),
			Amount:     edge.Amount,
			FilingYear: edge.FilingYear,
			ObjectID:   edge.ObjectID,
		})
	}

	return resp
}

// --- Helpers ---

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
