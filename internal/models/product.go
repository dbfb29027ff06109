// Package models defines the catalog snapshots, seller alerts and refresh runs exchanged
// between the catalog client, the refresh orchestrator and storage.
package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	one = decimal.NewFromInt(1)
)

// Product is a read-only snapshot of a catalog product together with its stored
// bestseller and ranking-trend predictions.
type Product struct {
	ASIN         string          `json:"asin"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url,omitempty"`
	SellerID     int64           `json:"seller_id,omitempty"`
	SellerName   string          `json:"seller_name,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Rating       decimal.Decimal `json:"rating"`
	ReviewsCount int             `json:"reviews_count"`
	SalesCount   int             `json:"sales_count"`
	CurrentRank  int             `json:"current_rank,omitempty"`

	BestsellerProbability decimal.NullDecimal `json:"bestseller_probability"`
	BestsellerConfidence  string              `json:"bestseller_confidence,omitempty"`
	PredictedTrend        string              `json:"predicted_trend,omitempty"`
	TrendConfidence       decimal.NullDecimal `json:"trend_confidence"`

	UpdatedAt time.Time `json:"updated_at"`
}

// IsPlatformProduct reports whether the product is sold by the platform itself rather
// than a marketplace seller.
func (p *Product) IsPlatformProduct() bool {
	return p.SellerID == 0
}

// Validate checks product field constraints.
func (p *Product) Validate() error {
	if p.ASIN == "" {
		return errors.New("product ASIN must not be empty")
	}
	if p.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if p.ReviewsCount < 0 {
		return errors.New("reviews count must not be negative")
	}
	if p.SalesCount < 0 {
		return errors.New("sales count must not be negative")
	}
	if p.BestsellerProbability.Valid && !inUnitInterval(p.BestsellerProbability.Decimal) {
		return errors.New("bestseller probability must be between 0.0 and 1.0")
	}
	if p.TrendConfidence.Valid && !inUnitInterval(p.TrendConfidence.Decimal) {
		return errors.New("trend confidence must be between 0.0 and 1.0")
	}
	if p.UpdatedAt.After(time.Now()) {
		return errors.New("updated at must not be in the future")
	}
	return nil
}

func inUnitInterval(v decimal.Decimal) bool {
	return !v.IsNegative() && !v.GreaterThan(one)
}
