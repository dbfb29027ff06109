// Package refresh runs the analytics refresh: it reads the catalog, evaluates every
// product, stores the results and notifies sellers of price opportunities.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/merchscore/internal/analytics"
	"github.com/rewired-gh/merchscore/internal/logger"
	"github.com/rewired-gh/merchscore/internal/models"
	"github.com/rewired-gh/merchscore/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ErrRefreshInProgress is returned when Run is called while another refresh is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// ProductSource supplies catalog snapshots.
type ProductSource interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
}

// Notifier delivers seller alerts.
type Notifier interface {
	SendAlerts(alerts []models.SellerAlert) error
}

type Config struct {
	Workers         int
	AggregateShards int
	TopK            int
	NotifyCooldown  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:         8,
		AggregateShards: 4,
		TopK:            10,
		NotifyCooldown:  24 * time.Hour,
	}
}

// Report summarizes one refresh.
type Report struct {
	RunID           string                    `json:"run_id"`
	ProductsFetched int                       `json:"products_fetched"`
	Analyzed        int                       `json:"analyzed"`
	Skipped         int                       `json:"skipped"`
	AlertsSent      int                       `json:"alerts_sent"`
	Stats           analytics.PredictionStats `json:"stats"`
	Duration        time.Duration             `json:"duration"`
}

type Refresher struct {
	source   ProductSource
	storage  *storage.Storage
	notifier Notifier
	config   Config
	now      func() time.Time

	mu sync.Mutex
}

// New creates a Refresher. notifier may be nil, in which case alerts are computed and
// logged but not delivered.
func New(source ProductSource, s *storage.Storage, notifier Notifier, config Config) *Refresher {
	return &Refresher{
		source:   source,
		storage:  s,
		notifier: notifier,
		config:   config,
		now:      time.Now,
	}
}

// Run performs one refresh. Only one refresh runs at a time; a concurrent call returns
// ErrRefreshInProgress without waiting.
func (r *Refresher) Run(ctx context.Context) (*Report, error) {
	if !r.mu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer r.mu.Unlock()

	started := r.now()
	run := &models.RefreshRun{ID: uuid.NewString(), StartedAt: started}
	if err := r.storage.StartRun(run); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	report, err := r.run(ctx, run)

	run.FinishedAt = r.now()
	run.Status = models.RunSucceeded
	if err != nil {
		run.Status = models.RunFailed
		run.Error = err.Error()
	}
	if ferr := r.storage.FinishRun(run); ferr != nil {
		logger.Error("Failed to record run %s: %v", run.ID, ferr)
	}
	if rerr := r.storage.RotateRuns(); rerr != nil {
		logger.Warn("Failed to rotate runs: %v", rerr)
	}
	if perr := r.storage.PruneNotifications(started.Add(-r.config.NotifyCooldown)); perr != nil {
		logger.Warn("Failed to prune notifications: %v", perr)
	}

	if err != nil {
		return nil, err
	}
	report.Duration = run.FinishedAt.Sub(started)
	logger.Info("Refresh %s finished in %v: %d fetched, %d analyzed, %d skipped, %d alerts sent",
		run.ID, report.Duration, report.ProductsFetched, report.Analyzed, report.Skipped, report.AlertsSent)
	return report, nil
}

func (r *Refresher) run(ctx context.Context, run *models.RefreshRun) (*Report, error) {
	products, err := r.source.FetchProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	run.ProductsFetched = len(products)

	predictions, err := r.evaluate(ctx, BuildInputs(products))
	if err != nil {
		return nil, err
	}

	stats := analytics.AggregateParallel(predictions, r.config.AggregateShards)
	run.Analyzed = int(stats.TotalPredictions)
	run.Skipped = int(stats.SkippedItems)

	analyzedAt := r.now()
	var analyses []storage.PriceAnalysis
	for _, p := range predictions {
		if p.Err != nil {
			logger.Debug("Skipping product %s: %v", p.ProductID, p.Err)
			continue
		}
		analyses = append(analyses, storage.PriceAnalysis{
			ProductID:  p.ProductID,
			Category:   p.Category,
			Result:     *p.Price,
			AnalyzedAt: analyzedAt,
		})
	}
	if err := r.storage.SavePriceAnalyses(run.ID, analyses); err != nil {
		return nil, err
	}
	if err := r.storage.SaveStats(run.ID, stats, analyzedAt); err != nil {
		return nil, err
	}

	alerts := r.PostProcessAlerts(BuildAlerts(products, predictions, analyzedAt))
	run.AlertsSent = r.deliver(alerts)

	return &Report{
		RunID:           run.ID,
		ProductsFetched: run.ProductsFetched,
		Analyzed:        run.Analyzed,
		Skipped:         run.Skipped,
		AlertsSent:      run.AlertsSent,
		Stats:           stats,
	}, nil
}

// evaluate runs the engine over inputs with at most config.Workers goroutines. The output
// keeps the input order.
func (r *Refresher) evaluate(ctx context.Context, inputs []analytics.ProductInput) ([]analytics.ProductPrediction, error) {
	out := make([]analytics.ProductPrediction, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.config.Workers, 1))
	for i := range inputs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = analytics.Evaluate(inputs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}
	return out, nil
}

// deliver sends alerts and records the ones delivered. It returns the number sent.
func (r *Refresher) deliver(alerts []models.SellerAlert) int {
	if len(alerts) == 0 {
		return 0
	}
	if r.notifier == nil {
		for _, a := range alerts {
			logger.Info("Alert (no notifier) %s for %s: %s", a.Kind, a.ProductID, a.Description)
		}
		return 0
	}
	if err := r.notifier.SendAlerts(alerts); err != nil {
		logger.Error("Failed to send %d seller alerts: %v", len(alerts), err)
		return 0
	}
	r.RecordNotified(alerts)
	return len(alerts)
}
