package app

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"countryrates/pkg/domain"
	"countryrates/pkg/render"
	"countryrates/pkg/store"
)

const topCountriesLimit = 5

// generateSummary computes the aggregate figures inside tx, renders the
// report and writes the singleton cache row. The three reads run
// concurrently; tx serializes them on its connection.
func generateSummary(tx store.Tx, refreshedAt time.Time) (domain.Summary, error) {
	var (
		total  int64
		top    []domain.Country
		exists bool
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if total, err = tx.CountCountries(); err != nil {
			return fmt.Errorf("count countries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if top, err = tx.TopCountriesByGDP(topCountriesLimit); err != nil {
			return fmt.Errorf("top countries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if _, exists, err = tx.SummaryRefreshedAt(); err != nil {
			return fmt.Errorf("load summary cache: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Summary{}, err
	}

	ranking := make([]domain.TopCountry, 0, len(top))
	for i, c := range top {
		ranking = append(ranking, domain.TopCountry{Rank: i + 1, Name: c.Name, EstimatedGDP: c.EstimatedGDP})
	}
	text := render.BuildReport(total, ranking, refreshedAt)
	image, err := render.RenderPNG(text)
	if err != nil {
		return domain.Summary{}, err
	}
	summary := domain.Summary{
		ImageData:       image,
		Text:            text,
		Filename:        domain.SummaryFilename,
		TotalCountries:  total,
		TopCountries:    ranking,
		LastRefreshedAt: refreshedAt,
	}
	if err := tx.SaveSummary(summary, exists); err != nil {
		return domain.Summary{}, fmt.Errorf("save summary cache: %w", err)
	}
	return summary, nil
}
