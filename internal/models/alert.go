package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AlertKind string

const (
	AlertPriceOpportunity AlertKind = "price_opportunity"
	AlertRankingDecline   AlertKind = "ranking_decline"
)

// SellerAlert is a notification addressed to the seller of one product.
type SellerAlert struct {
	ID          string
	Kind        AlertKind
	ProductID   string
	ProductName string
	SellerID    int64
	SellerName  string

	CurrentPrice     decimal.Decimal
	RecommendedPrice decimal.Decimal
	ChangePct        decimal.Decimal
	Action           string
	Description      string

	Trend           string
	ConfidenceScore decimal.NullDecimal

	CreatedAt time.Time
}

// Direction identifies the advice carried by the alert. Two alerts with the same
// direction for one product repeat each other.
func (a *SellerAlert) Direction() string {
	if a.Kind == AlertRankingDecline {
		return a.Trend
	}
	return a.Action
}

// Severity orders alerts for delivery: the size of the recommended price change for price
// alerts, the confidence score scaled to percent for ranking alerts.
func (a *SellerAlert) Severity() decimal.Decimal {
	if a.Kind == AlertRankingDecline {
		if !a.ConfidenceScore.Valid {
			return decimal.Zero
		}
		return a.ConfidenceScore.Decimal.Shift(2)
	}
	return a.ChangePct.Abs()
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RefreshRun records one execution of the analytics refresh.
type RefreshRun struct {
	ID              string
	Status          RunStatus
	ProductsFetched int
	Analyzed        int
	Skipped         int
	AlertsSent      int
	Error           string
	StartedAt       time.Time
	FinishedAt      time.Time
}
