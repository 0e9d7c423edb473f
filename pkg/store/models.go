package store

import (
	"time"

	"gorm.io/datatypes"
)

// summaryCacheID is the fixed primary key of the singleton summary row.
const summaryCacheID = "summary"

// GORM models used for persistence.
type CountryModel struct {
	ID              string    `gorm:"primaryKey;size:36"`
	Name            string    `gorm:"size:100;uniqueIndex:idx_countries_name;not null"`
	Capital         *string   `gorm:"size:100"`
	Region          *string   `gorm:"size:100;index:idx_countries_region"`
	Population      int64     `gorm:"not null"`
	CurrencyCode    string    `gorm:"size:3;not null;index:idx_countries_currency_code"`
	ExchangeRate    *float64  `gorm:"column:exchange_rate"`
	EstimatedGDP    *float64  `gorm:"column:estimated_gdp"`
	Flag            *string   `gorm:"size:255"`
	LastRefreshedAt time.Time `gorm:"not null"`
}

func (CountryModel) TableName() string {
	return "countries"
}

type SummaryCacheModel struct {
	ID              string         `gorm:"primaryKey;size:36"`
	ImageData       []byte         `gorm:"not null"`
	SummaryText     string         `gorm:"size:2048;not null"`
	Filename        string         `gorm:"size:100;not null"`
	TotalCountries  int64          `gorm:"not null;default:0"`
	TopCountries    datatypes.JSON `gorm:"column:top_countries"`
	LastRefreshedAt time.Time      `gorm:"not null"`
}

func (SummaryCacheModel) TableName() string {
	return "summary_caches"
}
