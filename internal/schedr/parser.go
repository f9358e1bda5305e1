// Package schedr parses IRS Form 990 Schedule R out of raw e-file XML.
//
// The parser is a pure function over bytes: no I/O, no retained state. It has
// to survive a decade of schema drift in the IRS e-file format, so element
// lookups accept the known historical spellings and anything it cannot make
// sense of is skipped rather than failing the filing.
package schedr

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/signalpot/entitygraph/internal/domain"
)

// Result is the outcome of parsing one filing.
type Result struct {
	// Edges are the disclosed relationships, source = filing owner, in
	// document order with identical (source, target, kind) entries
	// deduplicated.
	Edges []domain.RelationshipEdge

	// TaxYear is the filing's tax year, 0 when the document does not
	// disclose one.
	TaxYear int

	// Skipped counts relationship entries dropped as malformed.
	Skipped int
}

// Parse extracts Schedule R relationships from raw filing XML. A filing with
// no Schedule R section is valid and yields an empty edge set. Only a document
// that cannot be tokenized at all returns an error.
func Parse(ownerEIN string, objectID string, raw []byte) (Result, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))

	var result Result
	seen := make(map[domain.EdgeIdentity]struct{})

	add := func(edge domain.RelationshipEdge) {
		if _, ok := seen[edge.Identity()]; ok {
			return
		}
		seen[edge.Identity()] = struct{}{}
		result.Edges = append(result.Edges, edge)
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if len(result.Edges) > 0 || result.TaxYear != 0 {
				// Trailing garbage after usable content: keep what
				// was extracted.
				break
			}
			return Result{}, fmt.Errorf("parse filing xml: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "TaxYr", "TaxYear":
			var year string
			if err := decoder.DecodeElement(&year, &start); err == nil {
				if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
					result.TaxYear = y
				}
			}

		case "IdRelatedTaxExemptOrgGrp":
			var entry relatedOrgEntry
			if err := decoder.DecodeElement(&entry, &start); err != nil {
				result.Skipped++
				continue
			}
			edge, ok := entry.toEdge(ownerEIN, objectID, result.TaxYear, classifyExempt(entry))
			if !ok {
				result.Skipped++
				continue
			}
			add(edge)

		case "IdRelatedOrgTxblPartnershipGrp", "IdRelatedOrgTxblCorpTrGrp",
			"IdRelatedOrgTaxablePartnershipGrp", "IdRelatedOrgTaxableCorpTrGrp":
			var entry relatedOrgEntry
			if err := decoder.DecodeElement(&entry, &start); err != nil {
				result.Skipped++
				continue
			}
			edge, ok := entry.toEdge(ownerEIN, objectID, result.TaxYear, domain.KindControlled)
			if !ok {
				result.Skipped++
				continue
			}
			add(edge)

		case "TransactionsRelatedOrgGrp":
			var entry transactionEntry
			if err := decoder.DecodeElement(&entry, &start); err != nil {
				result.Skipped++
				continue
			}
			edge, ok := entry.toEdge(ownerEIN, objectID, result.TaxYear)
			if !ok {
				result.Skipped++
				continue
			}
			add(edge)
		}
	}

	return result, nil
}

// relatedOrgEntry covers the identification groups of Schedule R Parts II-IV.
// Field spellings changed across schema years; the alternates are all mapped.
type relatedOrgEntry struct {
	EIN    string `xml:"EIN"`
	EINAlt string `xml:"EINOfRelatedOrg"`

	Name         string `xml:"OrganizationName"`
	NameAlt      string `xml:"NameOfRelatedOrganization"`
	BusinessName string `xml:"BusinessName>BusinessNameLine1Txt"`
	BusinessAlt  string `xml:"BusinessName>BusinessNameLine1"`

	Relationship    string `xml:"OrganizationRelationship"`
	RelationshipTxt string `xml:"RelationshipTxt"`
	Activities      string `xml:"PrimaryActivitiesTxt"`
	ActivitiesCd    string `xml:"PrimaryActivitiesCd"`
	ControlledInd   string `xml:"ControlledOrganizationInd"`
	PublicCharity   string `xml:"PublicCharityStatusTxt"`
}

func (e relatedOrgEntry) ein() string {
	if e.EIN != "" {
		return e.EIN
	}
	return e.EINAlt
}

func (e relatedOrgEntry) name() string {
	for _, candidate := range []string{e.Name, e.NameAlt, e.BusinessName, e.BusinessAlt} {
		if cleaned := domain.CleanOrgName(candidate); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

func (e relatedOrgEntry) toEdge(ownerEIN, objectID string, taxYear int, kind domain.RelationKind) (domain.RelationshipEdge, bool) {
	target, err := domain.NormalizeEIN(e.ein())
	if err != nil {
		return domain.RelationshipEdge{}, false
	}
	if target == ownerEIN {
		// Some filings list the filer among its own related orgs.
		return domain.RelationshipEdge{}, false
	}
	return domain.RelationshipEdge{
		SourceEIN:     ownerEIN,
		TargetEIN:     target,
		Kind:          kind,
		DisclosedName: e.name(),
		FilingYear:    taxYear,
		ObjectID:      objectID,
	}, true
}

// transactionEntry covers Schedule R Part V transaction rows, which carry the
// disclosed amounts.
type transactionEntry struct {
	EIN          string `xml:"EIN"`
	Name         string `xml:"OrganizationName"`
	BusinessName string `xml:"BusinessName>BusinessNameLine1Txt"`
	BusinessAlt  string `xml:"BusinessName>BusinessNameLine1"`
	Relationship string `xml:"TransactionTypeTxt"`
	Amount       string `xml:"InvolvedAmt"`
	AmountAlt    string `xml:"AmountInvolved"`
}

func (e transactionEntry) toEdge(ownerEIN, objectID string, taxYear int) (domain.RelationshipEdge, bool) {
	target, err := domain.NormalizeEIN(e.EIN)
	if err != nil {
		return domain.RelationshipEdge{}, false
	}
	if target == ownerEIN {
		return domain.RelationshipEdge{}, false
	}

	name := domain.CleanOrgName(e.Name)
	if name == "" {
		name = domain.CleanOrgName(e.BusinessName)
	}
	if name == "" {
		name = domain.CleanOrgName(e.BusinessAlt)
	}

	return domain.RelationshipEdge{
		SourceEIN:     ownerEIN,
		TargetEIN:     target,
		Kind:          domain.KindOther,
		Amount:        parseAmount(firstNonEmpty(e.Amount, e.AmountAlt)),
		DisclosedName: name,
		FilingYear:    taxYear,
		ObjectID:      objectID,
	}, true
}

// classifyExempt maps the free-text relationship disclosure onto the closed
// kind enumeration. Anything unrecognized is KindOther, never an error.
func classifyExempt(entry relatedOrgEntry) domain.RelationKind {
	text := strings.ToLower(firstNonEmpty(
		entry.Relationship,
		entry.RelationshipTxt,
		entry.Activities,
		entry.ActivitiesCd,
	))

	switch {
	case strings.Contains(text, "parent"):
		return domain.KindParent
	case strings.Contains(text, "subordinate"), strings.Contains(text, "subsidiary"):
		return domain.KindSubordinate
	case strings.Contains(text, "supporting"), strings.Contains(text, "supported"):
		return domain.KindSupportingOrg
	case strings.Contains(text, "controlled"):
		return domain.KindControlled
	}

	if strings.EqualFold(strings.TrimSpace(entry.ControlledInd), "X") ||
		strings.EqualFold(strings.TrimSpace(entry.ControlledInd), "true") {
		return domain.KindControlled
	}
	return domain.KindOther
}

// parseAmount converts a disclosed amount to a decimal. Absent or unparsable
// values yield nil; absence is never conflated with a zero amount.
func parseAmount(text string) *float64 {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if text == "" {
		return nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return &value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
