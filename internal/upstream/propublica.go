package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/signalpot/entitygraph/internal/domain"
)

// ProPublicaClient talks to the ProPublica Nonprofit Explorer API. It serves
// both the metadata resolver (org record + filing index) and the name-search
// convenience endpoint.
type ProPublicaClient struct {
	transport *Transport
	baseURL   string
}

// NewProPublicaClient constructs the client against the given base URL,
// typically https://projects.propublica.org/nonprofits/api/v2.
func NewProPublicaClient(transport *Transport, baseURL string) *ProPublicaClient {
	return &ProPublicaClient{
		transport: transport,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// orgEnvelope carries the fields used from the organization endpoint. The
// filings_without_data list is deliberately not decoded: those filings exist
// only as scanned PDFs, with no XML object to fetch.
type orgEnvelope struct {
	Error        string      `json:"error"`
	Organization orgPayload  `json:"organization"`
	Filings      []orgFiling `json:"filings_with_data"`
}

type orgPayload struct {
	EIN            json.Number `json:"ein"`
	Name           string      `json:"name"`
	SortName       string      `json:"sort_name"`
	City           string      `json:"city"`
	State          string      `json:"state"`
	NTEECode       string      `json:"ntee_code"`
	RevenueAmount  *int64      `json:"revenue_amount"`
	LatestObjectID string      `json:"latest_object_id"`
}

type orgFiling struct {
	TaxPeriodYear int    `json:"tax_prd_yr"`
	PDFURL        string `json:"pdf_url"`
}

// Organization fetches the org record for a canonical nine-digit EIN.
// Returns ErrNotFound when ProPublica has no record of the organization.
func (c *ProPublicaClient) Organization(ctx context.Context, ein string) (*OrgRecord, error) {
	endpoint := fmt.Sprintf("%s/organizations/%s.json", c.baseURL, url.PathEscape(ein))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		c.transport.observe("propublica", "error")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		outcome := "error"
		if resp.StatusCode == http.StatusNotFound {
			outcome = "miss"
		}
		c.transport.observe("propublica", outcome)
		return nil, statusError("propublica", resp.StatusCode)
	}

	var envelope orgEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.transport.observe("propublica", "error")
		return nil, fmt.Errorf("propublica: decode organization: %w", err)
	}
	if envelope.Error != "" {
		c.transport.observe("propublica", "miss")
		return nil, fmt.Errorf("propublica: %w", ErrNotFound)
	}
	c.transport.observe("propublica", "ok")

	return buildOrgRecord(ein, envelope), nil
}

// Search queries organizations by name and returns the raw hits in API order.
func (c *ProPublicaClient) Search(ctx context.Context, name string) ([]OrgSummary, error) {
	endpoint := fmt.Sprintf("%s/search.json?q=%s", c.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		c.transport.observe("propublica", "error")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.transport.observe("propublica", "error")
		return nil, statusError("propublica", resp.StatusCode)
	}

	var payload struct {
		Organizations []struct {
			EIN   json.Number `json:"ein"`
			Name  string      `json:"name"`
			City  string      `json:"city"`
			State string      `json:"state"`
		} `json:"organizations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.transport.observe("propublica", "error")
		return nil, fmt.Errorf("propublica: decode search: %w", err)
	}
	c.transport.observe("propublica", "ok")

	results := make([]OrgSummary, 0, len(payload.Organizations))
	for _, org := range payload.Organizations {
		results = append(results, OrgSummary{
			EIN:   org.EIN.String(),
			Name:  org.Name,
			City:  org.City,
			State: org.State,
		})
	}
	return results, nil
}

func buildOrgRecord(ein string, envelope orgEnvelope) *OrgRecord {
	org := envelope.Organization
	name := domain.CleanOrgName(org.Name)
	if name == "" {
		name = domain.CleanOrgName(org.SortName)
	}

	record := &OrgRecord{
		Metadata: domain.OrgMetadata{
			EIN:            ein,
			Name:           name,
			Classification: org.NTEECode,
			City:           org.City,
			State:          org.State,
			TotalRevenue:   org.RevenueAmount,
		},
	}

	// The filing index: latest_object_id on the org itself, then object IDs
	// embedded in filing PDF URLs, newest first, deduplicated in order.
	seen := make(map[string]struct{})
	add := func(objectID string, year int) {
		if objectID == "" {
			return
		}
		if _, ok := seen[objectID]; ok {
			return
		}
		seen[objectID] = struct{}{}
		record.Filings = append(record.Filings, domain.FilingReference{
			ObjectID: objectID,
			TaxYear:  year,
			OwnerEIN: ein,
		})
	}

	add(org.LatestObjectID, 0)
	for _, filing := range envelope.Filings {
		add(objectIDFromPDFURL(filing.PDFURL), filing.TaxPeriodYear)
		if filing.TaxPeriodYear > record.Metadata.LatestFilingYear {
			record.Metadata.LatestFilingYear = filing.TaxPeriodYear
		}
	}

	return record
}

// objectIDFromPDFURL extracts the trailing object ID from a filing PDF URL,
// e.g. ".../340714585_202212_990_2024010422167836.pdf" -> "2024010422167836".
func objectIDFromPDFURL(pdfURL string) string {
	if pdfURL == "" {
		return ""
	}
	segment := strings.TrimSuffix(pdfURL, ".pdf")
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	parts := strings.Split(segment, "_")
	last := parts[len(parts)-1]
	if _, err := strconv.ParseUint(last, 10, 64); err != nil {
		return ""
	}
	return last
}
