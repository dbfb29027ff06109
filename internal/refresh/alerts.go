package refresh

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/merchscore/internal/analytics"
	"github.com/rewired-gh/merchscore/internal/logger"
	"github.com/rewired-gh/merchscore/internal/models"
	"github.com/rewired-gh/merchscore/internal/storage"
)

// BuildAlerts turns predictions into seller alerts: one price alert for every product whose
// recommended change exceeds the notification threshold and one ranking alert for every
// product whose decline needs attention. predictions must be index-aligned with products.
func BuildAlerts(products []models.Product, predictions []analytics.ProductPrediction, now time.Time) []models.SellerAlert {
	var alerts []models.SellerAlert

	for i, pred := range predictions {
		p := &products[i]
		base := models.SellerAlert{
			ProductID:    p.ASIN,
			ProductName:  p.Name,
			SellerID:     p.SellerID,
			SellerName:   p.SellerName,
			CurrentPrice: p.Price,
			CreatedAt:    now,
		}

		if pred.Price != nil && pred.Price.ShouldNotifySeller {
			a := base
			a.ID = uuid.NewString()
			a.Kind = models.AlertPriceOpportunity
			a.RecommendedPrice = pred.Price.RecommendedPrice
			a.ChangePct = pred.Price.PriceChangePercentage
			a.Action = string(pred.Price.PriceAction)
			a.Description = pred.Price.ActionDescription
			alerts = append(alerts, a)
		}

		if pred.Trend != nil && pred.Trend.NeedsAttention {
			a := base
			a.ID = uuid.NewString()
			a.Kind = models.AlertRankingDecline
			a.Trend = string(pred.Trend.Trend)
			a.ConfidenceScore = p.TrendConfidence
			a.Description = pred.Trend.Description
			alerts = append(alerts, a)
		}
	}

	return alerts
}

// PostProcessAlerts drops alerts still in cooldown, orders the rest by severity and keeps
// the top K.
func (r *Refresher) PostProcessAlerts(alerts []models.SellerAlert) []models.SellerAlert {
	alerts = r.FilterRecentlySent(alerts)

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity().GreaterThan(alerts[j].Severity())
	})

	if len(alerts) > r.config.TopK {
		alerts = alerts[:r.config.TopK]
	}
	return alerts
}

// FilterRecentlySent drops an alert when the same product was notified with the same kind
// and direction within the cooldown. A reversed direction is always let through.
func (r *Refresher) FilterRecentlySent(alerts []models.SellerAlert) []models.SellerAlert {
	now := r.now()
	var filtered []models.SellerAlert

	for _, alert := range alerts {
		rec, err := r.storage.LastNotification(alert.ProductID, alert.Kind)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			logger.Warn("Failed to load last notification for %s: %v", alert.ProductID, err)
		case now.Sub(rec.SentAt) < r.config.NotifyCooldown && rec.Direction == alert.Direction():
			logger.Debug("Suppressing %s alert for %s: notified %v ago", alert.Kind, alert.ProductID, now.Sub(rec.SentAt))
			continue
		}
		filtered = append(filtered, alert)
	}

	return filtered
}

// RecordNotified stores delivered alerts so later refreshes can apply the cooldown.
func (r *Refresher) RecordNotified(alerts []models.SellerAlert) {
	now := r.now()
	for i := range alerts {
		if err := r.storage.RecordNotification(&alerts[i], now); err != nil {
			logger.Warn("Failed to record notification for %s: %v", alerts[i].ProductID, err)
		}
	}
}
