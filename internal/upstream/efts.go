package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/signalpot/entitygraph/internal/domain"
)

// EFTSClient queries the IRS full-text search index. It is the fallback path
// when the direct filing index has no usable object IDs for an EIN.
type EFTSClient struct {
	transport *Transport
	baseURL   string
}

// NewEFTSClient constructs a client against the EFTS search endpoint,
// typically https://efts.irs.gov/LATEST/search-index.
func NewEFTSClient(transport *Transport, baseURL string) *EFTSClient {
	return &EFTSClient{transport: transport, baseURL: baseURL}
}

type eftsResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				ObjectID string `json:"ObjectId"`
				TaxYear  int    `json:"TaxYear"`
				EIN      string `json:"EIN"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FindFilings searches for 990 filings mentioning the EIN and returns the
// matching object references in index order, filtered to the owning EIN when
// the index discloses one.
func (c *EFTSClient) FindFilings(ctx context.Context, ein string) ([]domain.FilingReference, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("%q", ein))
	query.Set("forms", "990")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		c.transport.observe("efts", "error")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.transport.observe("efts", "error")
		return nil, statusError("efts", resp.StatusCode)
	}

	var payload eftsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.transport.observe("efts", "error")
		return nil, fmt.Errorf("efts: decode response: %w", err)
	}
	c.transport.observe("efts", "ok")

	var refs []domain.FilingReference
	for _, hit := range payload.Hits.Hits {
		if hit.Source.ObjectID == "" {
			continue
		}
		// Full-text search matches any filing mentioning the EIN; keep
		// only filings the index attributes to the organization itself.
		if hit.Source.EIN != "" {
			owner, err := domain.NormalizeEIN(hit.Source.EIN)
			if err != nil || owner != ein {
				continue
			}
		}
		refs = append(refs, domain.FilingReference{
			ObjectID: hit.Source.ObjectID,
			TaxYear:  hit.Source.TaxYear,
			OwnerEIN: ein,
		})
	}
	return refs, nil
}
