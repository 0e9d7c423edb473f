package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"countryrates/pkg/domain"
	"countryrates/pkg/store"
)

// Status is the aggregate state of the stored data.
type Status struct {
	TotalCountries  int64     `json:"total_countries"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// ListQuery holds raw list parameters as received from the caller.
type ListQuery struct {
	Region   string
	Currency string
	Sort     string
}

// GetCountry looks a country up by name after normalization.
func (a *App) GetCountry(ctx context.Context, name string) (domain.Country, error) {
	name = domain.NormalizeName(name)
	if name == "" {
		return domain.Country{}, domain.ErrCountryNotFound
	}
	var country domain.Country
	err := a.store.Transact(ctx, func(tx store.Tx) error {
		c, ok, err := tx.FindCountryByName(name)
		if err != nil {
			return fmt.Errorf("find country: %w", err)
		}
		if !ok {
			return domain.ErrCountryNotFound
		}
		country = c
		return nil
	})
	return country, err
}

// ListCountries returns the countries matching q. An empty match with
// filters set is a not-found; without filters it is an empty list.
func (a *App) ListCountries(ctx context.Context, q ListQuery) ([]domain.Country, error) {
	sortOrder, ok := domain.ParseSortOrder(strings.TrimSpace(q.Sort))
	if !ok {
		return nil, &domain.InvalidInputError{Details: map[string]string{
			"sort": "must be one of gdp_asc, gdp_desc",
		}}
	}
	filter := domain.CountryFilter{
		Region:   domain.NormalizeRegion(q.Region),
		Currency: domain.NormalizeCurrencyCode(q.Currency),
		Sort:     sortOrder,
	}
	var countries []domain.Country
	err := a.store.Transact(ctx, func(tx store.Tx) error {
		var err error
		countries, err = tx.ListCountries(filter)
		if err != nil {
			return fmt.Errorf("list countries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(countries) == 0 && filter.HasFilters() {
		return nil, domain.ErrCountryNotFound
	}
	return countries, nil
}

// Status reports the stored count and the time of the last refresh. Both
// must exist; otherwise the refresh has never run.
func (a *App) Status(ctx context.Context) (Status, error) {
	var st Status
	err := a.store.Transact(ctx, func(tx store.Tx) error {
		at, ok, err := tx.SummaryRefreshedAt()
		if err != nil {
			return fmt.Errorf("load summary cache: %w", err)
		}
		if !ok {
			return domain.ErrCountryNotFound
		}
		total, err := tx.CountCountries()
		if err != nil {
			return fmt.Errorf("count countries: %w", err)
		}
		if total == 0 {
			return domain.ErrCountryNotFound
		}
		st = Status{TotalCountries: total, LastRefreshedAt: at}
		return nil
	})
	return st, err
}

// SummaryImage returns the cached PNG.
func (a *App) SummaryImage(ctx context.Context) (domain.Summary, error) {
	var summary domain.Summary
	err := a.store.Transact(ctx, func(tx store.Tx) error {
		s, ok, err := tx.GetSummary()
		if err != nil {
			return fmt.Errorf("load summary cache: %w", err)
		}
		if !ok || len(s.ImageData) == 0 {
			return domain.ErrSummaryNotFound
		}
		summary = s
		return nil
	})
	return summary, err
}

// DeleteCountry removes a country by name after normalization.
func (a *App) DeleteCountry(ctx context.Context, name string) error {
	name = domain.NormalizeName(name)
	if name == "" {
		return domain.ErrCountryNotFound
	}
	return a.store.Transact(ctx, func(tx store.Tx) error {
		c, ok, err := tx.FindCountryByName(name)
		if err != nil {
			return fmt.Errorf("find country: %w", err)
		}
		if !ok {
			return domain.ErrCountryNotFound
		}
		return tx.DeleteCountry(c.ID)
	})
}
