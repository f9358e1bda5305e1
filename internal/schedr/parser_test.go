package schedr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpot/entitygraph/internal/domain"
)

const owner = "340714585"

func TestParseExemptRelatedOrgs(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?>
<Return xmlns="http://www.irs.gov/efile">
  <ReturnHeader><TaxYr>2022</TaxYr></ReturnHeader>
  <ReturnData>
    <IRS990ScheduleR>
      <IdRelatedTaxExemptOrgGrp>
        <BusinessName><BusinessNameLine1Txt>MERCY SUBSIDIARY ONE</BusinessNameLine1Txt></BusinessName>
        <EIN>111111111</EIN>
        <OrganizationRelationship>Subsidiary</OrganizationRelationship>
      </IdRelatedTaxExemptOrgGrp>
      <IdRelatedTaxExemptOrgGrp>
        <BusinessName><BusinessNameLine1Txt>MERCY PARENT</BusinessNameLine1Txt></BusinessName>
        <EIN>22-2222222</EIN>
        <RelationshipTxt>Parent organization</RelationshipTxt>
      </IdRelatedTaxExemptOrgGrp>
      <IdRelatedTaxExemptOrgGrp>
        <OrganizationName>SUPPORTED FOUNDATION</OrganizationName>
        <EIN>333333333</EIN>
        <PrimaryActivitiesTxt>Supporting organization of the system</PrimaryActivitiesTxt>
      </IdRelatedTaxExemptOrgGrp>
      <IdRelatedTaxExemptOrgGrp>
        <EIN>444444444</EIN>
        <ControlledOrganizationInd>X</ControlledOrganizationInd>
      </IdRelatedTaxExemptOrgGrp>
      <IdRelatedTaxExemptOrgGrp>
        <EIN>555555555</EIN>
        <OrganizationRelationship>Shared facilities</OrganizationRelationship>
      </IdRelatedTaxExemptOrgGrp>
    </IRS990ScheduleR>
  </ReturnData>
</Return>`)

	result, err := Parse(owner, "obj-1", raw)
	require.NoError(t, err)
	require.Len(t, result.Edges, 5)
	assert.Equal(t, 2022, result.TaxYear)
	assert.Zero(t, result.Skipped)

	kinds := make(map[string]domain.RelationKind)
	names := make(map[string]string)
	for _, edge := range result.Edges {
		assert.Equal(t, owner, edge.SourceEIN)
		assert.Equal(t, "obj-1", edge.ObjectID)
		assert.Equal(t, 2022, edge.FilingYear)
		kinds[edge.TargetEIN] = edge.Kind
		names[edge.TargetEIN] = edge.DisclosedName
	}

	assert.Equal(t, domain.KindSubordinate, kinds["111111111"])
	assert.Equal(t, domain.KindParent, kinds["222222222"])
	assert.Equal(t, domain.KindSupportingOrg, kinds["333333333"])
	assert.Equal(t, domain.KindControlled, kinds["444444444"])
	assert.Equal(t, domain.KindOther, kinds["555555555"])
	assert.Equal(t, "MERCY SUBSIDIARY ONE", names["111111111"])
	assert.Equal(t, "SUPPORTED FOUNDATION", names["333333333"])
}

func TestParseMixedGoodAndMalformedEntries(t *testing.T) {
	raw := []byte(`<Return>
  <ReturnHeader><TaxYr>2021</TaxYr></ReturnHeader>
  <IRS990ScheduleR>
    <IdRelatedTaxExemptOrgGrp>
      <EIN>111111111</EIN>
      <OrganizationRelationship>Subsidiary</OrganizationRelationship>
    </IdRelatedTaxExemptOrgGrp>
    <IdRelatedTaxExemptOrgGrp>
      <EIN>not-a-number</EIN>
      <OrganizationRelationship>Subsidiary</OrganizationRelationship>
    </IdRelatedTaxExemptOrgGrp>
    <IdRelatedTaxExemptOrgGrp>
      <OrganizationRelationship>No EIN disclosed at all</OrganizationRelationship>
    </IdRelatedTaxExemptOrgGrp>
    <IdRelatedTaxExemptOrgGrp>
      <EIN>222222222</EIN>
      <OrganizationRelationship>Parent</OrganizationRelationship>
    </IdRelatedTaxExemptOrgGrp>
  </IRS990ScheduleR>
</Return>`)

	result, err := Parse(owner, "obj-2", raw)
	require.NoError(t, err)
	assert.Len(t, result.Edges, 2)
	assert.Equal(t, 2, result.Skipped)
}

func TestParseTaxablePartnershipAndOlderSpellings(t *testing.T) {
	raw := []byte(`<Return>
  <IRS990ScheduleR>
    <IdRelatedOrgTxblPartnershipGrp>
      <BusinessName><BusinessNameLine1Txt>MERCY VENTURES LLC</BusinessNameLine1Txt></BusinessName>
      <EIN>666666666</EIN>
    </IdRelatedOrgTxblPartnershipGrp>
    <IdRelatedOrgTaxablePartnershipGrp>
      <NameOfRelatedOrganization>LEGACY PARTNERS LP</NameOfRelatedOrganization>
      <EINOfRelatedOrg>777777777</EINOfRelatedOrg>
    </IdRelatedOrgTaxablePartnershipGrp>
  </IRS990ScheduleR>
</Return>`)

	result, err := Parse(owner, "obj-3", raw)
	require.NoError(t, err)
	require.Len(t, result.Edges, 2)
	for _, edge := range result.Edges {
		assert.Equal(t, domain.KindControlled, edge.Kind)
	}
	assert.Equal(t, "LEGACY PARTNERS LP", result.Edges[1].DisclosedName)
}

func TestParseTransactionAmounts(t *testing.T) {
	raw := []byte(`<Return>
  <IRS990ScheduleR>
    <TransactionsRelatedOrgGrp>
      <BusinessName><BusinessNameLine1Txt>GRANTEE ORG</BusinessNameLine1Txt></BusinessName>
      <EIN>111111111</EIN>
      <TransactionTypeTxt>b</TransactionTypeTxt>
      <InvolvedAmt>1234567.89</InvolvedAmt>
    </TransactionsRelatedOrgGrp>
    <TransactionsRelatedOrgGrp>
      <EIN>222222222</EIN>
      <TransactionTypeTxt>r</TransactionTypeTxt>
    </TransactionsRelatedOrgGrp>
  </IRS990ScheduleR>
</Return>`)

	result, err := Parse(owner, "obj-4", raw)
	require.NoError(t, err)
	require.Len(t, result.Edges, 2)

	first := result.Edges[0]
	require.NotNil(t, first.Amount)
	assert.InDelta(t, 1234567.89, *first.Amount, 0.001)
	assert.Equal(t, domain.KindOther, first.Kind)

	// A transaction row without an amount must stay nil, never zero.
	assert.Nil(t, result.Edges[1].Amount)
}

func TestParseNoScheduleR(t *testing.T) {
	raw := []byte(`<Return>
  <ReturnHeader><TaxYr>2020</TaxYr></ReturnHeader>
  <ReturnData><IRS990></IRS990></ReturnData>
</Return>`)

	result, err := Parse(owner, "obj-5", raw)
	require.NoError(t, err)
	assert.Empty(t, result.Edges)
	assert.Equal(t, 2020, result.TaxYear)
}

func TestParseSelfReferenceSkipped(t *testing.T) {
	raw := []byte(`<Return>
  <IRS990ScheduleR>
    <IdRelatedTaxExemptOrgGrp>
      <EIN>34-0714585</EIN>
      <OrganizationRelationship>Parent</OrganizationRelationship>
    </IdRelatedTaxExemptOrgGrp>
  </IRS990ScheduleR>
</Return>`)

	result, err := Parse(owner, "obj-6", raw)
	require.NoError(t, err)
	assert.Empty(t, result.Edges)
}

func TestParseDeduplicatesRepeatedDisclosures(t *testing.T) {
	raw := []byte(`<Return>
  <IRS990ScheduleR>
    <IdRelatedTaxExemptOrgGrp>
      <EIN>111111111</EIN>
      <OrganizationRelationship>Subsidiary</OrganizationRelationship>
    </IdRelatedTaxExemptOrgGrp>
    <IdRelatedTaxExemptOrgGrp>
      <EIN>111111111</EIN>
      <OrganizationRelationship>Subsidiary</OrganizationRelationship>
    </IdRelatedTaxExemptOrgGrp>
  </IRS990ScheduleR>
</Return>`)

	result, err := Parse(owner, "obj-7", raw)
	require.NoError(t, err)
	assert.Len(t, result.Edges, 1)
}

func TestParseUnparsableDocument(t *testing.T) {
	_, err := Parse(owner, "obj-8", []byte("<<<< this is not xml"))
	require.Error(t, err)
}
