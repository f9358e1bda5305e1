package domain

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CleanOrgName collapses whitespace and trims the disclosed organization name.
// Filings frequently pad names with stray newlines and double spaces, which
// would otherwise leak into node labels and search comparisons.
func CleanOrgName(name string) string {
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
