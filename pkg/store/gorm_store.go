package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"countryrates/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and applies pending schema migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if err := RunMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB wraps an already opened connection. The caller owns
// the schema.
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates the tables from the GORM models. Used where the SQL
// migrations cannot run, such as SQLite test databases.
func (s *GormStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&CountryModel{}, &SummaryCacheModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func newGormConfig() *gorm.Config {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{Logger: gormLog, TranslateError: true}
}

// Transact runs fn inside a database transaction bound to ctx.
func (s *GormStore) Transact(ctx context.Context, fn func(Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	mu sync.Mutex
	db *gorm.DB
}

// FindCountryByName looks up a country by its normalized name.
func (t *gormTx) FindCountryByName(name string) (domain.Country, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var model CountryModel
	if err := t.db.Where("name = ?", name).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Country{}, false, nil
		}
		return domain.Country{}, false, err
	}
	return countryFromModel(model), true, nil
}

// InsertCountry creates a new row.
func (t *gormTx) InsertCountry(c domain.Country) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	model := countryToModel(c)
	return translateWriteError(t.db.Create(&model).Error)
}

// UpdateCountry writes every mutable column of c, including NULLs.
func (t *gormTx) UpdateCountry(c domain.Country) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := t.db.Model(&CountryModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":              c.Name,
			"capital":           c.Capital,
			"region":            c.Region,
			"population":        c.Population,
			"currency_code":     c.CurrencyCode,
			"exchange_rate":     c.ExchangeRate,
			"estimated_gdp":     c.EstimatedGDP,
			"flag":              c.Flag,
			"last_refreshed_at": c.LastRefreshedAt,
		})
	if res.Error != nil {
		return translateWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCountryNotFound
	}
	return nil
}

// DeleteCountry removes a country by ID.
func (t *gormTx) DeleteCountry(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := t.db.Delete(&CountryModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCountryNotFound
	}
	return nil
}

// ListCountries applies region/currency filters and the gdp ordering.
// Nulls always sort last; name breaks ties.
func (t *gormTx) ListCountries(filter domain.CountryFilter) ([]domain.Country, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q := t.db.Model(&CountryModel{})
	if filter.Region != "" {
		q = q.Where("region = ?", filter.Region)
	}
	if filter.Currency != "" {
		q = q.Where("currency_code = ?", filter.Currency)
	}
	switch filter.Sort {
	case domain.SortGDPAsc:
		q = q.Order("estimated_gdp ASC NULLS LAST")
	case domain.SortGDPDesc:
		q = q.Order("estimated_gdp DESC NULLS LAST")
	}
	var models []CountryModel
	if err := q.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return countriesFromModels(models), nil
}

// CountCountries returns the number of stored countries.
func (t *gormTx) CountCountries() (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var count int64
	if err := t.db.Model(&CountryModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TopCountriesByGDP returns up to limit countries with the highest
// estimated GDP; unknown estimates rank last.
func (t *gormTx) TopCountriesByGDP(limit int) ([]domain.Country, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var models []CountryModel
	if err := t.db.Order("estimated_gdp DESC NULLS LAST").Order("name ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return countriesFromModels(models), nil
}

// GetSummary loads the singleton summary row.
func (t *gormTx) GetSummary() (domain.Summary, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var model SummaryCacheModel
	if err := t.db.Take(&model, "id = ?", summaryCacheID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Summary{}, false, nil
		}
		return domain.Summary{}, false, err
	}
	summary, err := summaryFromModel(model)
	if err != nil {
		return domain.Summary{}, false, err
	}
	return summary, true, nil
}

// SummaryRefreshedAt returns the timestamp of the singleton row without
// loading the image.
func (t *gormTx) SummaryRefreshedAt() (time.Time, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var model SummaryCacheModel
	err := t.db.Select("id", "last_refreshed_at").Take(&model, "id = ?", summaryCacheID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return model.LastRefreshedAt, true, nil
}

// SaveSummary creates the singleton row or overwrites all of its fields.
// Two creators racing on an empty table collide on the fixed primary key.
func (t *gormTx) SaveSummary(summary domain.Summary, exists bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	model, err := summaryToModel(summary)
	if err != nil {
		return err
	}
	if !exists {
		return translateWriteError(t.db.Create(&model).Error)
	}
	res := t.db.Model(&SummaryCacheModel{}).
		Where("id = ?", summaryCacheID).
		Updates(map[string]any{
			"image_data":        model.ImageData,
			"summary_text":      model.SummaryText,
			"filename":          model.Filename,
			"total_countries":   model.TotalCountries,
			"top_countries":     model.TopCountries,
			"last_refreshed_at": model.LastRefreshedAt,
		})
	if res.Error != nil {
		return translateWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("summary row disappeared during refresh: %w", domain.ErrConflict)
	}
	return nil
}

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func countryToModel(c domain.Country) CountryModel {
	return CountryModel{
		ID:              c.ID,
		Name:            c.Name,
		Capital:         c.Capital,
		Region:          c.Region,
		Population:      c.Population,
		CurrencyCode:    c.CurrencyCode,
		ExchangeRate:    c.ExchangeRate,
		EstimatedGDP:    c.EstimatedGDP,
		Flag:            c.Flag,
		LastRefreshedAt: c.LastRefreshedAt,
	}
}

func countryFromModel(m CountryModel) domain.Country {
	return domain.Country{
		ID:              m.ID,
		Name:            m.Name,
		Capital:         m.Capital,
		Region:          m.Region,
		Population:      m.Population,
		CurrencyCode:    m.CurrencyCode,
		ExchangeRate:    m.ExchangeRate,
		EstimatedGDP:    m.EstimatedGDP,
		Flag:            m.Flag,
		LastRefreshedAt: m.LastRefreshedAt.UTC(),
	}
}

func countriesFromModels(models []CountryModel) []domain.Country {
	res := make([]domain.Country, 0, len(models))
	for _, m := range models {
		res = append(res, countryFromModel(m))
	}
	return res
}

func summaryToModel(s domain.Summary) (SummaryCacheModel, error) {
	top := s.TopCountries
	if top == nil {
		top = []domain.TopCountry{}
	}
	raw, err := json.Marshal(top)
	if err != nil {
		return SummaryCacheModel{}, fmt.Errorf("marshal top countries: %w", err)
	}
	return SummaryCacheModel{
		ID:              summaryCacheID,
		ImageData:       s.ImageData,
		SummaryText:     s.Text,
		Filename:        s.Filename,
		TotalCountries:  s.TotalCountries,
		TopCountries:    datatypes.JSON(raw),
		LastRefreshedAt: s.LastRefreshedAt,
	}, nil
}

func summaryFromModel(m SummaryCacheModel) (domain.Summary, error) {
	var top []domain.TopCountry
	if len(m.TopCountries) > 0 {
		if err := json.Unmarshal(m.TopCountries, &top); err != nil {
			return domain.Summary{}, fmt.Errorf("decode top countries: %w", err)
		}
	}
	return domain.Summary{
		ImageData:       m.ImageData,
		Text:            m.SummaryText,
		Filename:        m.Filename,
		TotalCountries:  m.TotalCountries,
		TopCountries:    top,
		LastRefreshedAt: m.LastRefreshedAt.UTC(),
	}, nil
}
