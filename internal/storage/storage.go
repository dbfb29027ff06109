// Package storage provides SQLite-backed persistence for refresh runs, price analyses,
// prediction statistics and seller notifications.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/merchscore/internal/analytics"
	"github.com/rewired-gh/merchscore/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db      *sql.DB
	maxRuns int
}

// PriceAnalysis is a stored price recommendation for one product.
type PriceAnalysis struct {
	RunID      string
	ProductID  string
	Category   string
	Result     analytics.PriceIntelligenceResult
	AnalyzedAt time.Time
}

// StatsSnapshot is the dashboard statistics stored for one refresh run.
type StatsSnapshot struct {
	RunID     string
	Stats     analytics.PredictionStats
	CreatedAt time.Time
}

// Notification records an alert delivered to a seller.
type Notification struct {
	ID        string
	ProductID string
	Kind      models.AlertKind
	Direction string
	SentAt    time.Time
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/merchscore/data.db.
func New(maxRuns int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "merchscore", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db, maxRuns: maxRuns}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	// decimals are stored as TEXT to keep them exact
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_runs (
			id               TEXT PRIMARY KEY,
			status           TEXT NOT NULL,
			products_fetched INTEGER NOT NULL DEFAULT 0,
			analyzed         INTEGER NOT NULL DEFAULT 0,
			skipped          INTEGER NOT NULL DEFAULT 0,
			alerts_sent      INTEGER NOT NULL DEFAULT 0,
			error            TEXT NOT NULL DEFAULT '',
			started_at       INTEGER NOT NULL,
			finished_at      INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS price_analyses (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL REFERENCES refresh_runs(id) ON DELETE CASCADE,
			product_id        TEXT NOT NULL,
			category          TEXT NOT NULL,
			current_price     TEXT NOT NULL,
			recommended_price TEXT NOT NULL,
			price_change_pct  TEXT NOT NULL,
			price_action      TEXT NOT NULL,
			should_notify     INTEGER NOT NULL,
			result_json       TEXT NOT NULL,
			analyzed_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_analyses_product ON price_analyses(product_id, analyzed_at DESC)`,
		`CREATE TABLE IF NOT EXISTS prediction_stats (
			run_id     TEXT PRIMARY KEY REFERENCES refresh_runs(id) ON DELETE CASCADE,
			stats_json TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			kind       TEXT NOT NULL,
			direction  TEXT NOT NULL,
			change_pct TEXT NOT NULL,
			sent_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_product ON notifications(product_id, kind, sent_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartRun inserts a run in the running state.
func (s *Storage) StartRun(run *models.RefreshRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id must not be empty")
	}
	_, err := s.db.Exec(`
		INSERT INTO refresh_runs (id, status, started_at) VALUES (?,?,?)`,
		run.ID, string(models.RunRunning), run.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of a run.
func (s *Storage) FinishRun(run *models.RefreshRun) error {
	res, err := s.db.Exec(`
		UPDATE refresh_runs SET
			status=?, products_fetched=?, analyzed=?, skipped=?, alerts_sent=?, error=?, finished_at=?
		WHERE id=?`,
		string(run.Status), run.ProductsFetched, run.Analyzed, run.Skipped, run.AlertsSent,
		run.Error, run.FinishedAt.UnixNano(), run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

func (s *Storage) GetRun(id string) (*models.RefreshRun, error) {
	row := s.db.QueryRow(`SELECT `+runCols+` FROM refresh_runs WHERE id = ?`, id)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Storage) RecentRuns(limit int) ([]*models.RefreshRun, error) {
	rows, err := s.db.Query(`SELECT `+runCols+` FROM refresh_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.RefreshRun{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SavePriceAnalyses stores the price results of a run in one transaction.
func (s *Storage) SavePriceAnalyses(runID string, analyses []PriceAnalysis) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO price_analyses
			(run_id, product_id, category, current_price, recommended_price, price_change_pct,
			 price_action, should_notify, result_json, analyzed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range analyses {
		resultJSON, err := json.Marshal(a.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal price result for %s: %w", a.ProductID, err)
		}
		r := a.Result
		if _, err := stmt.Exec(
			runID, a.ProductID, a.Category,
			r.CurrentPrice.String(), r.RecommendedPrice.String(), r.PriceChangePercentage.String(),
			string(r.PriceAction), boolToInt(r.ShouldNotifySeller), string(resultJSON),
			a.AnalyzedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to insert price analysis for %s: %w", a.ProductID, err)
		}
	}

	return tx.Commit()
}

// GetPriceAnalysis returns the latest stored price analysis of a product.
func (s *Storage) GetPriceAnalysis(productID string) (*PriceAnalysis, error) {
	row := s.db.QueryRow(`
		SELECT run_id, product_id, category, result_json, analyzed_at
		FROM price_analyses WHERE product_id = ?
		ORDER BY analyzed_at DESC, id DESC LIMIT 1`, productID)

	var a PriceAnalysis
	var resultJSON string
	var analyzedAtNano int64
	err := row.Scan(&a.RunID, &a.ProductID, &a.Category, &resultJSON, &analyzedAtNano)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("price analysis for %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &a.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price result: %w", err)
	}
	a.AnalyzedAt = time.Unix(0, analyzedAtNano)
	return &a, nil
}

// SaveStats stores the statistics snapshot of a run.
func (s *Storage) SaveStats(runID string, stats analytics.PredictionStats, createdAt time.Time) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO prediction_stats (run_id, stats_json, created_at) VALUES (?,?,?)`,
		runID, string(statsJSON), createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// LatestStats returns the most recently stored statistics snapshot.
func (s *Storage) LatestStats() (*StatsSnapshot, error) {
	row := s.db.QueryRow(`
		SELECT run_id, stats_json, created_at FROM prediction_stats
		ORDER BY created_at DESC LIMIT 1`)

	var snap StatsSnapshot
	var statsJSON string
	var createdAtNano int64
	err := row.Scan(&snap.RunID, &statsJSON, &createdAtNano)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stats: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &snap.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	snap.CreatedAt = time.Unix(0, createdAtNano)
	return &snap, nil
}

// RecordNotification stores a delivered seller alert for cooldown tracking.
func (s *Storage) RecordNotification(alert *models.SellerAlert, sentAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO notifications (id, product_id, kind, direction, change_pct, sent_at)
		VALUES (?,?,?,?,?,?)`,
		alert.ID, alert.ProductID, string(alert.Kind), alert.Direction(),
		alert.ChangePct.String(), sentAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// LastNotification returns the latest notification of the given kind for a product.
func (s *Storage) LastNotification(productID string, kind models.AlertKind) (*Notification, error) {
	row := s.db.QueryRow(`
		SELECT id, product_id, kind, direction, sent_at FROM notifications
		WHERE product_id = ? AND kind = ?
		ORDER BY sent_at DESC LIMIT 1`, productID, string(kind))

	var n Notification
	var kindStr string
	var sentAtNano int64
	err := row.Scan(&n.ID, &n.ProductID, &kindStr, &n.Direction, &sentAtNano)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification for %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	n.Kind = models.AlertKind(kindStr)
	n.SentAt = time.Unix(0, sentAtNano)
	return &n, nil
}

// RotateRuns keeps at most maxRuns newest runs by started_at.
// Cascading deletes remove their price analyses and statistics.
func (s *Storage) RotateRuns() error {
	_, err := s.db.Exec(`
		DELETE FROM refresh_runs WHERE id NOT IN (
			SELECT id FROM refresh_runs ORDER BY started_at DESC LIMIT ?
		)`, s.maxRuns)
	if err != nil {
		return fmt.Errorf("failed to rotate runs: %w", err)
	}
	return nil
}

// PruneNotifications deletes notifications sent before cutoff.
func (s *Storage) PruneNotifications(cutoff time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM notifications WHERE sent_at < ?`, cutoff.UnixNano()); err != nil {
		return fmt.Errorf("failed to prune notifications: %w", err)
	}
	return nil
}

const runCols = `id, status, products_fetched, analyzed, skipped, alerts_sent, error,
	started_at, finished_at`

func scanRun(scan func(...any) error) (*models.RefreshRun, error) {
	var r models.RefreshRun
	var status string
	var startedAtNano, finishedAtNano int64
	err := scan(
		&r.ID, &status, &r.ProductsFetched, &r.Analyzed, &r.Skipped, &r.AlertsSent, &r.Error,
		&startedAtNano, &finishedAtNano,
	)
	if err != nil {
		return nil, err
	}
	r.Status = models.RunStatus(status)
	r.StartedAt = time.Unix(0, startedAtNano)
	if finishedAtNano != 0 {
		r.FinishedAt = time.Unix(0, finishedAtNano)
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
