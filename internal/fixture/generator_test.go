package fixture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/schedr"
)

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42

	first, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)
	second, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateProducesConsistentNetwork(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.NumOrgs = 40

	dataset, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, dataset.Orgs, 40)
	assert.Equal(t, dataset.Orgs[0].EIN, dataset.RootEIN)

	// The root always carries a filing so resolutions have somewhere to start.
	assert.NotEmpty(t, dataset.Orgs[0].ObjectID)

	known := make(map[string]struct{}, len(dataset.Orgs))
	for _, org := range dataset.Orgs {
		_, err := domain.NormalizeEIN(org.EIN)
		require.NoError(t, err, org.EIN)
		known[org.EIN] = struct{}{}
	}
	for _, org := range dataset.Orgs {
		for _, rel := range org.Relations {
			_, ok := known[rel.TargetEIN]
			assert.True(t, ok, "relation target %s not generated", rel.TargetEIN)
			assert.NotEqual(t, org.EIN, rel.TargetEIN)
		}
	}
}

func TestRenderFilingRoundTripsThroughParser(t *testing.T) {
	amount := 125000.50
	target := Org{EIN: "111111111", Name: "MERCY HOSPITAL EAST"}
	owner := Org{
		EIN:      "340714585",
		Name:     "MERCY HEALTH SYSTEM",
		ObjectID: "obj-1",
		TaxYear:  2023,
		Relations: []Relation{
			{TargetEIN: target.EIN, Kind: domain.KindSubordinate},
			{TargetEIN: "222222222", Kind: domain.KindParent, Amount: &amount},
		},
	}
	names := map[string]string{
		target.EIN:  target.Name,
		"222222222": "MERCY PARENT HOLDINGS",
	}

	raw := RenderFiling(owner, names)
	result, err := schedr.Parse(owner.EIN, owner.ObjectID, raw)
	require.NoError(t, err)
	require.Zero(t, result.Skipped)
	assert.Equal(t, 2023, result.TaxYear)

	// Two identification rows plus one transaction row for the relation that
	// discloses an amount.
	require.Len(t, result.Edges, 3)
	assert.Equal(t, domain.KindSubordinate, result.Edges[0].Kind)
	assert.Equal(t, target.EIN, result.Edges[0].TargetEIN)
	assert.Equal(t, target.Name, result.Edges[0].DisclosedName)

	assert.Equal(t, domain.KindParent, result.Edges[1].Kind)

	assert.Equal(t, domain.KindOther, result.Edges[2].Kind)
	require.NotNil(t, result.Edges[2].Amount)
	assert.InDelta(t, amount, *result.Edges[2].Amount, 0.001)
}

func TestUpstreamsServeDataset(t *testing.T) {
	dataset := Dataset{
		RootEIN: "340714585",
		Orgs: []Org{
			{EIN: "340714585", Name: "MERCY HEALTH SYSTEM", City: "Cincinnati", State: "OH", ObjectID: "obj-1", TaxYear: 2022},
			{EIN: "111111111", Name: "NO FILING ORG", TaxYear: 2022},
		},
	}
	md, si, fs := dataset.Upstreams()

	record, err := md.Organization(context.Background(), "340714585")
	require.NoError(t, err)
	assert.Equal(t, "MERCY HEALTH SYSTEM", record.Metadata.Name)
	require.Len(t, record.Filings, 1)

	refs, err := si.FindFilings(context.Background(), "340714585")
	require.NoError(t, err)
	require.Len(t, refs, 1)

	raw, err := fs.Fetch(context.Background(), "obj-1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<TaxYr>2022</TaxYr>")

	// Orgs without a filing have metadata but nothing in the store or index.
	noFiling, err := md.Organization(context.Background(), "111111111")
	require.NoError(t, err)
	assert.Empty(t, noFiling.Filings)
	empty, err := si.FindFilings(context.Background(), "111111111")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWriteAndLoadDataset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 9
	cfg.NumOrgs = 5

	dataset, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteDataset(dataset, dir))

	loaded, err := LoadDataset(dir)
	require.NoError(t, err)
	assert.Equal(t, dataset, loaded)
}
