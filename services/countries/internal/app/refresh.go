package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"countryrates/internal/metrics"
	"countryrates/internal/util"
	"countryrates/pkg/domain"
	"countryrates/pkg/events"
	"countryrates/pkg/storage"
	"countryrates/pkg/store"
)

// RefreshResult is the outcome of a committed refresh.
type RefreshResult struct {
	Message         string                     `json:"message"`
	Status          string                     `json:"status"`
	Updated         int                        `json:"valid_countries_updated"`
	Inserted        int                        `json:"valid_countries_inserted"`
	Skipped         int                        `json:"invalid_countries_skipped"`
	Errors          []domain.ValidationFailure `json:"errors"`
	TotalCountries  int64                      `json:"total_countries"`
	LastRefreshedAt time.Time                  `json:"last_refreshed_at"`
}

// Refresh fetches both sources, upserts every valid record and replaces the
// summary cache in one transaction. Invalid records are skipped and listed
// in the result. Any other failure rolls the whole refresh back.
func (a *App) Refresh(ctx context.Context) (RefreshResult, error) {
	logger := util.LoggerFromContext(ctx)
	started := time.Now()

	raws, err := a.fetcher.Fetch(ctx)
	if err != nil {
		a.metrics.RecordRefresh(refreshOutcome(err), time.Since(started))
		return RefreshResult{}, err
	}

	valid := make([]domain.Country, 0, len(raws))
	failures := make([]domain.ValidationFailure, 0)
	for _, raw := range raws {
		country, failure := domain.NormalizeAndValidate(a.estimator.Apply(raw))
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}
		valid = append(valid, country)
	}

	refreshedAt := a.now().UTC().Truncate(time.Microsecond)
	var (
		inserted, updated int
		summary           domain.Summary
	)
	err = a.store.Transact(ctx, func(tx store.Tx) error {
		inserted, updated = 0, 0
		for _, c := range valid {
			existing, ok, err := tx.FindCountryByName(c.Name)
			if err != nil {
				return fmt.Errorf("find country %q: %w", c.Name, err)
			}
			if ok {
				if err := tx.UpdateCountry(domain.ApplyRefresh(existing, c, refreshedAt)); err != nil {
					if errors.Is(err, domain.ErrCountryNotFound) {
						// Deleted after the lookup by a concurrent request.
						return fmt.Errorf("update country %q: row vanished: %w", c.Name, domain.ErrConflict)
					}
					return fmt.Errorf("update country %q: %w", c.Name, err)
				}
				updated++
				continue
			}
			c.ID = uuid.NewString()
			c.LastRefreshedAt = refreshedAt
			if err := tx.InsertCountry(c); err != nil {
				return fmt.Errorf("insert country %q: %w", c.Name, err)
			}
			inserted++
		}
		var err error
		summary, err = generateSummary(tx, refreshedAt)
		return err
	})
	if err != nil {
		a.metrics.RecordRefresh(refreshOutcome(err), time.Since(started))
		return RefreshResult{}, err
	}

	a.metrics.RecordRefresh(metrics.OutcomeSuccess, time.Since(started))
	a.metrics.RecordCommitted(inserted, updated, len(failures), summary.TotalCountries, refreshedAt)
	logger.Info("countries refreshed",
		"inserted", inserted,
		"updated", updated,
		"skipped", len(failures),
		"total", summary.TotalCountries,
	)
	a.afterCommit(ctx, summary, events.RefreshEvent{
		RefreshedAt:    refreshedAt,
		Inserted:       inserted,
		Updated:        updated,
		Skipped:        len(failures),
		TotalCountries: summary.TotalCountries,
	})

	return RefreshResult{
		Message:         "Countries refreshed successfully",
		Status:          "success",
		Updated:         updated,
		Inserted:        inserted,
		Skipped:         len(failures),
		Errors:          failures,
		TotalCountries:  summary.TotalCountries,
		LastRefreshedAt: refreshedAt,
	}, nil
}

// afterCommit publishes the summary artifact and the refresh event. Both are
// best effort: the data is already committed, so failures are only logged.
func (a *App) afterCommit(ctx context.Context, summary domain.Summary, ev events.RefreshEvent) {
	logger := util.LoggerFromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if a.artifacts != nil {
		if err := storage.PutBytes(ctx, a.artifacts, summary.Filename, summary.ImageData, "image/png"); err != nil {
			a.metrics.RecordSideEffectError("artifact")
			logger.Warn("publish summary artifact failed", "key", summary.Filename, "err", err)
		}
	}
	if a.events != nil {
		if _, err := a.events.PublishRefresh(ctx, ev); err != nil {
			a.metrics.RecordSideEffectError("event")
			logger.Warn("publish refresh event failed", "err", err)
		}
	}
}

func refreshOutcome(err error) string {
	var srcErr *domain.SourceUnavailableError
	switch {
	case errors.As(err, &srcErr):
		return metrics.OutcomeSourceUnavailable
	case errors.Is(err, domain.ErrConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
