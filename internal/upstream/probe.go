package upstream

import (
	"context"
	"strconv"
	"time"
)

// probeEIN is a large healthcare system with a long 990 history; its records
// exist in all three upstreams, which makes it a stable connectivity canary.
const probeEIN = "340714585"

// ConnectivityProbe performs a live end-to-end check against the three
// upstream services. Exposed through the debug endpoint only.
type ConnectivityProbe struct {
	Metadata *ProPublicaClient
	Search   *EFTSClient
	Store    *S3FilingStore
}

// ServiceStatus is one service's probe outcome.
type ServiceStatus struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Check probes each configured upstream in sequence, chaining the object ID
// discovered via search into the filing store fetch.
func (p ConnectivityProbe) Check(ctx context.Context) map[string]ServiceStatus {
	report := make(map[string]ServiceStatus)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var objectID string

	if p.Metadata != nil {
		record, err := p.Metadata.Organization(ctx, probeEIN)
		if err != nil {
			report["metadata"] = ServiceStatus{Error: err.Error()}
		} else {
			status := ServiceStatus{OK: true, Detail: record.Metadata.Name}
			if len(record.Filings) > 0 {
				objectID = record.Filings[0].ObjectID
			}
			report["metadata"] = status
		}
	}

	if p.Search != nil {
		refs, err := p.Search.FindFilings(ctx, probeEIN)
		if err != nil {
			report["search"] = ServiceStatus{Error: err.Error()}
		} else {
			report["search"] = ServiceStatus{OK: true, Detail: "hits: " + strconv.Itoa(len(refs))}
			if objectID == "" && len(refs) > 0 {
				objectID = refs[0].ObjectID
			}
		}
	}

	if p.Store != nil {
		if objectID == "" {
			report["filing_store"] = ServiceStatus{Error: "no object ID available to probe with"}
		} else if raw, err := p.Store.Fetch(ctx, objectID); err != nil {
			report["filing_store"] = ServiceStatus{Error: err.Error()}
		} else {
			report["filing_store"] = ServiceStatus{OK: true, Detail: "bytes: " + strconv.Itoa(len(raw))}
		}
	}

	return report
}

