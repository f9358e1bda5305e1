package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// S3FilingStore retrieves raw 990 XML from the public IRS bucket at
// {base}/{objectID}_public.xml.
type S3FilingStore struct {
	transport *Transport
	baseURL   string
}

// NewS3FilingStore constructs the filing store client, typically against
// https://s3.amazonaws.com/irs-form-990.
func NewS3FilingStore(transport *Transport, baseURL string) *S3FilingStore {
	return &S3FilingStore{transport: transport, baseURL: baseURL}
}

// Fetch returns the raw filing XML for the object reference. A missing
// document yields ErrNotFound; transient failures yield ErrUnavailable.
func (s *S3FilingStore) Fetch(ctx context.Context, objectID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s_public.xml", s.baseURL, objectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.transport.Do(req)
	if err != nil {
		s.transport.observe("filing_store", "error")
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through
	case http.StatusNotFound, http.StatusForbidden:
		// The bucket answers 403 for unknown keys depending on ACLs;
		// both mean the document does not exist.
		s.transport.observe("filing_store", "miss")
		return nil, fmt.Errorf("filing_store: object %s: %w", objectID, ErrNotFound)
	default:
		s.transport.observe("filing_store", "error")
		return nil, statusError("filing_store", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		s.transport.observe("filing_store", "error")
		return nil, fmt.Errorf("filing_store: %w: read body: %v", ErrUnavailable, err)
	}

	// S3 serves XML error pages with a 200 status through some fronting
	// layers; sniff the prefix so they are treated as missing documents.
	prefix := raw
	if len(prefix) > 200 {
		prefix = prefix[:200]
	}
	if bytes.Contains(prefix, []byte("<Error>")) {
		s.transport.observe("filing_store", "miss")
		return nil, fmt.Errorf("filing_store: object %s: %w", objectID, ErrNotFound)
	}

	s.transport.observe("filing_store", "ok")
	return raw, nil
}
