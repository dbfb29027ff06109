// Package analytics turns product and category statistics into merchandising signals:
// price recommendations, bestseller flags, ranking-trend labels and category aggregates.
//
// Every function in this package is a pure transform over value snapshots. Nothing here
// performs I/O, reads the clock or keeps state between calls.
package analytics

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRange           = errors.New("category max price is below category min price")
	ErrNegativePrice          = errors.New("current price must not be negative")
	ErrUnknownTrend           = errors.New("unknown ranking trend")
	ErrUnknownConfidenceLevel = errors.New("unknown confidence level")
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)

	zoneLow  = decimal.RequireFromString("0.40")
	zoneHigh = decimal.RequireFromString("0.60")

	midPercentile = decimal.NewFromInt(50)

	maintainBand    = decimal.NewFromInt(5)
	notifyThreshold = decimal.NewFromInt(15)

	bestsellerThreshold = decimal.RequireFromString("0.70")
	attentionThreshold  = decimal.RequireFromString("0.70")
	highConfidenceScore = decimal.RequireFromString("0.80")
	midConfidenceScore  = decimal.RequireFromString("0.65")

	priceConfidence = decimal.RequireFromString("0.85")
)

// Decimal places used when rounding each kind of value.
const (
	moneyPlaces   = 2
	ratioPlaces   = 4
	displayPlaces = 1
)

// ratio returns round(num/den*100, places) half-up, or fallback when den is zero.
func ratio(num, den decimal.Decimal, places int32, fallback decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return fallback
	}
	return num.Mul(hundred).DivRound(den, places)
}

// mean returns sum/count rounded half-up to ratioPlaces, or zero for an empty set.
func mean(sum decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(count), ratioPlaces)
}
