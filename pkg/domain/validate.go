package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Column widths of the countries table, in characters.
const (
	MaxNameLen    = 100
	MaxCapitalLen = 100
	MaxRegionLen  = 100
	MaxFlagLen    = 255
)

// ValidationFailure describes why a raw record was skipped during a refresh.
type ValidationFailure struct {
	Country string            `json:"country,omitempty"`
	Details map[string]string `json:"details"`
}

// Fields returns the offending field names in stable order.
func (f ValidationFailure) Fields() []string {
	out := make([]string, 0, len(f.Details))
	for k := range f.Details {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NormalizeAndValidate turns a raw record into a normalized Country. A
// non-nil failure means the record must be skipped; the returned Country is
// then meaningless. The identifier and refresh timestamp are left empty for
// the upsert step to fill.
func NormalizeAndValidate(raw RawCountry) (Country, *ValidationFailure) {
	details := map[string]string{}

	name := NormalizeName(raw.Name)
	if name == "" {
		details["name"] = "is required"
	}
	checkLen(details, "name", &name, MaxNameLen)
	capital := trimmedOrNil(raw.Capital)
	checkLen(details, "capital", capital, MaxCapitalLen)
	var region *string
	if raw.Region != nil {
		if r := NormalizeRegion(*raw.Region); r != "" {
			region = &r
		}
	}
	checkLen(details, "region", region, MaxRegionLen)
	flag := trimmedOrNil(raw.Flag)
	checkLen(details, "flag", flag, MaxFlagLen)
	if raw.Population == nil {
		details["population"] = "is required"
	} else if *raw.Population < 0 {
		details["population"] = "must be non-negative"
	}
	code := ""
	if raw.CurrencyCode != nil {
		code = NormalizeCurrencyCode(*raw.CurrencyCode)
	}
	switch {
	case code == "":
		details["currency_code"] = "is required"
	case !isCurrencyCode(code):
		details["currency_code"] = "must be a 3-letter code"
	}

	if len(details) > 0 {
		return Country{}, &ValidationFailure{Country: name, Details: details}
	}

	return Country{
		Name:         name,
		Capital:      capital,
		Region:       region,
		Population:   *raw.Population,
		CurrencyCode: code,
		ExchangeRate: raw.ExchangeRate,
		EstimatedGDP: raw.EstimatedGDP,
		Flag:         flag,
	}, nil
}

func checkLen(details map[string]string, field string, v *string, limit int) {
	if v != nil && utf8.RuneCountInString(*v) > limit {
		details[field] = fmt.Sprintf("must be at most %d characters", limit)
	}
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
