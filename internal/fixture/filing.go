package fixture

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/upstream"
)

// RenderFiling renders an IRS-efile-shaped 990 XML document for the org,
// including a Schedule R section disclosing its relations. The output is
// intentionally the same shape the real filing store serves, so the parser
// exercises its production paths against fixtures.
func RenderFiling(org Org, names map[string]string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	buf.WriteString(`<Return xmlns="http://www.irs.gov/efile">` + "\n")
	buf.WriteString("  <ReturnHeader>\n")
	fmt.Fprintf(&buf, "    <TaxYr>%d</TaxYr>\n", org.TaxYear)
	fmt.Fprintf(&buf, "    <Filer><EIN>%s</EIN></Filer>\n", org.EIN)
	buf.WriteString("  </ReturnHeader>\n")
	buf.WriteString("  <ReturnData>\n")

	if len(org.Relations) > 0 {
		buf.WriteString("    <IRS990ScheduleR>\n")
		for _, rel := range org.Relations {
			name := names[rel.TargetEIN]
			buf.WriteString("      <IdRelatedTaxExemptOrgGrp>\n")
			fmt.Fprintf(&buf, "        <BusinessName><BusinessNameLine1Txt>%s</BusinessNameLine1Txt></BusinessName>\n", xmlEscape(name))
			fmt.Fprintf(&buf, "        <EIN>%s</EIN>\n", rel.TargetEIN)
			fmt.Fprintf(&buf, "        <OrganizationRelationship>%s</OrganizationRelationship>\n", kindText(rel.Kind))
			buf.WriteString("      </IdRelatedTaxExemptOrgGrp>\n")

			if rel.Amount != nil {
				buf.WriteString("      <TransactionsRelatedOrgGrp>\n")
				fmt.Fprintf(&buf, "        <BusinessName><BusinessNameLine1Txt>%s</BusinessNameLine1Txt></BusinessName>\n", xmlEscape(name))
				fmt.Fprintf(&buf, "        <EIN>%s</EIN>\n", rel.TargetEIN)
				buf.WriteString("        <TransactionTypeTxt>r</TransactionTypeTxt>\n")
				fmt.Fprintf(&buf, "        <InvolvedAmt>%s</InvolvedAmt>\n", strconv.FormatFloat(*rel.Amount, 'f', 2, 64))
				buf.WriteString("      </TransactionsRelatedOrgGrp>\n")
			}
		}
		buf.WriteString("    </IRS990ScheduleR>\n")
	}

	buf.WriteString("  </ReturnData>\n")
	buf.WriteString("</Return>\n")
	return buf.Bytes()
}

// kindText writes a relation kind the way filings disclose it, using wording
// the parser's classifier maps back onto the same kind.
func kindText(kind domain.RelationKind) string {
	switch kind {
	case domain.KindParent:
		return "Parent organization"
	case domain.KindSubordinate:
		return "Subsidiary"
	case domain.KindSupportingOrg:
		return "Supporting organization"
	case domain.KindControlled:
		return "Controlled entity"
	default:
		return "Related organization"
	}
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// Upstreams materializes in-memory upstream stubs serving the dataset, for
// tests and the offline development mode of cmd/resolve.
func (d Dataset) Upstreams() (*upstream.MemoryMetadataAPI, *upstream.MemorySearchIndex, *upstream.MemoryFilingStore) {
	names := make(map[string]string, len(d.Orgs))
	for _, org := range d.Orgs {
		names[org.EIN] = org.Name
	}

	metadata := upstream.NewMemoryMetadataAPI()
	search := upstream.NewMemorySearchIndex()
	store := upstream.NewMemoryFilingStore()

	for _, org := range d.Orgs {
		var filings []domain.FilingReference
		if org.ObjectID != "" {
			filings = []domain.FilingReference{{
				ObjectID: org.ObjectID,
				TaxYear:  org.TaxYear,
				OwnerEIN: org.EIN,
			}}
			store.SetObject(org.ObjectID, RenderFiling(org, names))
			search.SetFilings(org.EIN, filings)
		}
		metadata.SetRecord(org.EIN, &upstream.OrgRecord{
			Metadata: domain.OrgMetadata{
				EIN:              org.EIN,
				Name:             org.Name,
				City:             org.City,
				State:            org.State,
				LatestFilingYear: org.TaxYear,
			},
			Filings: filings,
		})
	}

	return metadata, search, store
}
