package upstream

import (
	"context"
	"fmt"
	"sync"

	"github.com/signalpot/entitygraph/internal/domain"
)

// MemoryMetadataAPI is an in-memory MetadataAPI used for unit tests and the
// fixture-backed development mode. Failures can be injected per EIN, either
// permanently or for the first N calls, to exercise retry paths.
type MemoryMetadataAPI struct {
	mu       sync.Mutex
	records  map[string]*OrgRecord
	failures map[string]*injectedFailure
	calls    map[string]int
}

type injectedFailure struct {
	err       error
	remaining int // <0 means fail forever
}

// NewMemoryMetadataAPI instantiates an empty in-memory metadata API.
func NewMemoryMetadataAPI() *MemoryMetadataAPI {
	return &MemoryMetadataAPI{
		records:  make(map[string]*OrgRecord),
		failures: make(map[string]*injectedFailure),
		calls:    make(map[string]int),
	}
}

// SetRecord registers the record returned for an EIN.
func (m *MemoryMetadataAPI) SetRecord(ein string, record *OrgRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[ein] = record
}

// FailWith makes every Organization call for the EIN return err.
func (m *MemoryMetadataAPI) FailWith(ein string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[ein] = &injectedFailure{err: err, remaining: -1}
}

// FailTimes makes the next n Organization calls for the EIN return err
// before the stored record is served.
func (m *MemoryMetadataAPI) FailTimes(ein string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[ein] = &injectedFailure{err: err, remaining: n}
}

// Calls reports how many Organization calls were made for the EIN.
func (m *MemoryMetadataAPI) Calls(ein string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ein]
}

func (m *MemoryMetadataAPI) Organization(_ context.Context, ein string) (*OrgRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[ein]++
	if failure, ok := m.failures[ein]; ok {
		if failure.remaining < 0 {
			return nil, failure.err
		}
		if failure.remaining > 0 {
			failure.remaining--
			return nil, failure.err
		}
	}

	record, ok := m.records[ein]
	if !ok {
		return nil, fmt.Errorf("memory metadata: %w", ErrNotFound)
	}
	return record, nil
}

// MemorySearchIndex is an in-memory SearchIndex stub.
type MemorySearchIndex struct {
	mu       sync.Mutex
	filings  map[string][]domain.FilingReference
	failures map[string]*injectedFailure
	calls    map[string]int
}

// NewMemorySearchIndex instantiates an empty in-memory search index.
func NewMemorySearchIndex() *MemorySearchIndex {
	return &MemorySearchIndex{
		filings:  make(map[string][]domain.FilingReference),
		failures: make(map[string]*injectedFailure),
		calls:    make(map[string]int),
	}
}

// SetFilings registers the references returned for an EIN.
func (m *MemorySearchIndex) SetFilings(ein string, refs []domain.FilingReference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filings[ein] = refs
}

// FailWith makes every FindFilings call for the EIN return err.
func (m *MemorySearchIndex) FailWith(ein string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[ein] = &injectedFailure{err: err, remaining: -1}
}

// Calls reports how many FindFilings calls were made for the EIN.
func (m *MemorySearchIndex) Calls(ein string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ein]
}

func (m *MemorySearchIndex) FindFilings(_ context.Context, ein string) ([]domain.FilingReference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[ein]++
	if failure, ok := m.failures[ein]; ok && failure.remaining != 0 {
		if failure.remaining > 0 {
			failure.remaining--
		}
		return nil, failure.err
	}
	return m.filings[ein], nil
}

// MemoryFilingStore is an in-memory FilingStore stub.
type MemoryFilingStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures map[string]*injectedFailure
	calls    map[string]int
}

// NewMemoryFilingStore instantiates an empty in-memory filing store.
func NewMemoryFilingStore() *MemoryFilingStore {
	return &MemoryFilingStore{
		objects:  make(map[string][]byte),
		failures: make(map[string]*injectedFailure),
		calls:    make(map[string]int),
	}
}

// SetObject registers raw filing content under an object ID.
func (m *MemoryFilingStore) SetObject(objectID string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectID] = raw
}

// FailWith makes every Fetch call for the object ID return err.
func (m *MemoryFilingStore) FailWith(objectID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[objectID] = &injectedFailure{err: err, remaining: -1}
}

// FailTimes makes the next n Fetch calls for the object ID return err.
func (m *MemoryFilingStore) FailTimes(objectID string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[objectID] = &injectedFailure{err: err, remaining: n}
}

// Calls reports how many Fetch calls were made for the object ID.
func (m *MemoryFilingStore) Calls(objectID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[objectID]
}

func (m *MemoryFilingStore) Fetch(_ context.Context, objectID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[objectID]++
	if failure, ok := m.failures[objectID]; ok {
		if failure.remaining < 0 {
			return nil, failure.err
		}
		if failure.remaining > 0 {
			failure.remaining--
			return nil, failure.err
		}
	}

	raw, ok := m.objects[objectID]
	if !ok {
		return nil, fmt.Errorf("memory filing store: object %s: %w", objectID, ErrNotFound)
	}
	return raw, nil
}
