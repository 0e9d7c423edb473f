package domain

import "time"

// SummaryFilename is the label stored with the cached summary image.
const SummaryFilename = "cache/summary.png"

// Country is a persisted, normalized country record.
type Country struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Capital         *string   `json:"capital"`
	Region          *string   `json:"region"`
	Population      int64     `json:"population"`
	CurrencyCode    string    `json:"currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate"`
	EstimatedGDP    *float64  `json:"estimated_gdp"`
	Flag            *string   `json:"flag"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// RawCountry is a merged record from the external sources before validation.
// A nil pointer means the upstream value was absent.
type RawCountry struct {
	Name         string
	Capital      *string
	Region       *string
	Population   *int64
	Flag         *string
	CurrencyCode *string
	ExchangeRate *float64
	EstimatedGDP *float64
}

// ApplyRefresh overwrites every mutable field of existing with the values of
// incoming. The identifier is kept; nothing else survives from the old row.
func ApplyRefresh(existing Country, incoming Country, now time.Time) Country {
	existing.Name = incoming.Name
	existing.Capital = incoming.Capital
	existing.Region = incoming.Region
	existing.Population = incoming.Population
	existing.CurrencyCode = incoming.CurrencyCode
	existing.ExchangeRate = incoming.ExchangeRate
	existing.EstimatedGDP = incoming.EstimatedGDP
	existing.Flag = incoming.Flag
	existing.LastRefreshedAt = now
	return existing
}

// TopCountry is one entry of the summary ranking.
type TopCountry struct {
	Rank         int      `json:"rank"`
	Name         string   `json:"name"`
	EstimatedGDP *float64 `json:"estimated_gdp"`
}

// Summary is the singleton summary artifact.
type Summary struct {
	ImageData       []byte
	Text            string
	Filename        string
	TotalCountries  int64
	TopCountries    []TopCountry
	LastRefreshedAt time.Time
}

// SortOrder selects the estimated_gdp ordering of a list query.
type SortOrder string

const (
	SortNone    SortOrder = ""
	SortGDPAsc  SortOrder = "gdp_asc"
	SortGDPDesc SortOrder = "gdp_desc"
)

// ParseSortOrder maps a query parameter to a SortOrder.
func ParseSortOrder(raw string) (SortOrder, bool) {
	switch SortOrder(raw) {
	case SortNone:
		return SortNone, true
	case SortGDPAsc:
		return SortGDPAsc, true
	case SortGDPDesc:
		return SortGDPDesc, true
	default:
		return SortNone, false
	}
}

// CountryFilter holds list query options. Region and Currency are expected
// to be normalized already.
type CountryFilter struct {
	Region   string
	Currency string
	Sort     SortOrder
}

// HasFilters reports whether a region or currency filter is set.
func (f CountryFilter) HasFilters() bool {
	return f.Region != "" || f.Currency != ""
}
