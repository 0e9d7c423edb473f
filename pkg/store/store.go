package store

import (
	"context"
	"time"

	"countryrates/pkg/domain"
)

// Store opens transactions over the country and summary tables.
type Store interface {
	// Transact runs fn in one database transaction. It commits when fn
	// returns nil and rolls back otherwise.
	Transact(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx defines persistence operations available inside a transaction. A Tx
// may be shared by goroutines of the same request; statements are
// serialized on its connection.
type Tx interface {
	// countries
	FindCountryByName(name string) (domain.Country, bool, error)
	InsertCountry(domain.Country) error
	UpdateCountry(domain.Country) error
	DeleteCountry(id string) error
	ListCountries(filter domain.CountryFilter) ([]domain.Country, error)
	CountCountries() (int64, error)
	TopCountriesByGDP(limit int) ([]domain.Country, error)

	// summary cache
	GetSummary() (domain.Summary, bool, error)
	SummaryRefreshedAt() (time.Time, bool, error)
	SaveSummary(summary domain.Summary, exists bool) error
}
