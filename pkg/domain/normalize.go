package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName trims and title-cases a country name. It is the single
// canonical form used for storage and for name lookups.
func NormalizeName(name string) string {
	return titleCase(name)
}

// NormalizeRegion trims and title-cases a region.
func NormalizeRegion(region string) string {
	return titleCase(region)
}

// NormalizeCurrencyCode trims and upper-cases a currency code.
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Casers keep state, so one per call.
	return cases.Title(language.Und).String(s)
}
