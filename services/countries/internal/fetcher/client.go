// Package fetcher pulls the country catalog and USD exchange rates from the
// two upstream sources and merges them into raw country records.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"countryrates/pkg/domain"
)

const (
	DefaultCountriesURL = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"
	DefaultRatesURL     = "https://open.er-api.com/v6/latest/USD"
	DefaultTimeout      = 10 * time.Second

	CountriesSource = "Restcountries.com"
	RatesSource     = "Open.er-api.com"

	maxBodyBytes = 16 << 20
)

// Fetcher returns merged raw country records.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.RawCountry, error)
}

// Config configures the HTTP fetcher. Empty fields take the defaults.
type Config struct {
	CountriesURL string
	RatesURL     string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client fetches both sources over HTTP.
type Client struct {
	countriesURL string
	ratesURL     string
	timeout      time.Duration
	httpClient   *http.Client
}

// New constructs a Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	countriesURL := strings.TrimSpace(cfg.CountriesURL)
	if countriesURL == "" {
		countriesURL = DefaultCountriesURL
	}
	ratesURL := strings.TrimSpace(cfg.RatesURL)
	if ratesURL == "" {
		ratesURL = DefaultRatesURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		countriesURL: countriesURL,
		ratesURL:     ratesURL,
		timeout:      timeout,
		httpClient:   httpClient,
	}
}

type countryPayload struct {
	Name       string  `json:"name"`
	Capital    *string `json:"capital"`
	Region     *string `json:"region"`
	Population *int64  `json:"population"`
	Flag       *string `json:"flag"`
	Currencies []currencyPayload `json:"currencies"`
}

type currencyPayload struct {
	Code *string `json:"code"`
}

type ratesPayload struct {
	Result *string            `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// Fetch calls both sources concurrently. The first failure cancels the
// other call and is returned as *domain.SourceUnavailableError.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawCountry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		countries []countryPayload
		rates     ratesPayload
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, c.countriesURL, CountriesSource, &countries)
	})
	g.Go(func() error {
		if err := c.getJSON(gctx, c.ratesURL, RatesSource, &rates); err != nil {
			return err
		}
		if rates.Result != nil && *rates.Result != "success" {
			return &domain.SourceUnavailableError{Source: RatesSource, Err: fmt.Errorf("result %q", *rates.Result)}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merge(countries, rates.Rates), nil
}

func (c *Client) getJSON(ctx context.Context, url, source string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &domain.SourceUnavailableError{Source: source, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.SourceUnavailableError{Source: source, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &domain.SourceUnavailableError{Source: source, Err: fmt.Errorf("status %s", resp.Status)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &domain.SourceUnavailableError{Source: source, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

func merge(countries []countryPayload, rates map[string]float64) []domain.RawCountry {
	out := make([]domain.RawCountry, 0, len(countries))
	for _, c := range countries {
		raw := domain.RawCountry{
			Name:       c.Name,
			Capital:    c.Capital,
			Region:     c.Region,
			Population: c.Population,
			Flag:       c.Flag,
		}
		if len(c.Currencies) > 0 && c.Currencies[0].Code != nil && strings.TrimSpace(*c.Currencies[0].Code) != "" {
			code := domain.NormalizeCurrencyCode(*c.Currencies[0].Code)
			raw.CurrencyCode = &code
			if rate, ok := rates[code]; ok {
				raw.ExchangeRate = &rate
			}
		}
		out = append(out, raw)
	}
	return out
}
