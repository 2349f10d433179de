// Package store provides a SQLite-backed ledger of imported transactions
// and saved forecasts.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// timestamps are stored fixed-width in UTC so text order is time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dayLayout = "2006-01-02"

// Ledger provides SQLite-backed transaction storage.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at the given path.
func Open(dbPath string) (*Ledger, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the ledger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (l *Ledger) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := l.db.Query("SELECT file_path, mtime_ns, size_bytes FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveFileImport replaces every transaction previously imported from
// filePath with txs, stores cats, and records the file's tracking info.
func (l *Ledger) SaveFileImport(filePath string, txs []model.Transaction, cats []model.Category, mtimeNs, sizeBytes int64) error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM transactions WHERE file_path = ?", filePath); err != nil {
		return err
	}
	if err := upsertCategories(tx, cats); err != nil {
		return err
	}
	if err := upsertTransactions(tx, txs, filePath); err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes)
		VALUES (?, ?, ?)`, filePath, mtimeNs, sizeBytes)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// SaveTransactions upserts transactions that did not come from a file.
func (l *Ledger) SaveTransactions(txs []model.Transaction, cats []model.Category) error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertCategories(tx, cats); err != nil {
		return err
	}
	if err := upsertTransactions(tx, txs, ""); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertCategories(tx *sql.Tx, cats []model.Category) error {
	if len(cats) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO categories (category_id, name, description)
		VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range cats {
		if _, err := stmt.Exec(c.ID, c.Name, c.Description); err != nil {
			return fmt.Errorf("saving category %s: %w", c.ID, err)
		}
	}
	return nil
}

func upsertTransactions(tx *sql.Tx, txs []model.Transaction, filePath string) error {
	if len(txs) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO transactions
		(tx_id, external_id, amount, currency, tx_type, category_id, category,
		 description, occurred_at, source, file_path, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(tsLayout)
	var fp sql.NullString
	if filePath != "" {
		fp = sql.NullString{String: filePath, Valid: true}
	}
	for _, t := range txs {
		_, err := stmt.Exec(
			t.ID, t.ExternalID, t.Amount.String(), t.Currency, string(t.Type), t.CategoryID, t.Category,
			t.Description, t.OccurredAt.UTC().Format(tsLayout), t.Source, fp, now,
		)
		if err != nil {
			return fmt.Errorf("saving transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

// LoadTransactions reads transactions in [since, until], oldest first.
// A zero bound is open.
func (l *Ledger) LoadTransactions(since, until time.Time) ([]model.Transaction, error) {
	lo := ""
	if !since.IsZero() {
		lo = since.UTC().Format(tsLayout)
	}
	hi := "9999"
	if !until.IsZero() {
		hi = until.UTC().Format(tsLayout)
	}

	rows, err := l.db.Query(`SELECT
		tx_id, external_id, amount, currency, tx_type, category_id, category,
		description, occurred_at, source
		FROM transactions
		WHERE occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at, tx_id`, lo, hi)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Transaction
	for rows.Next() {
		var (
			t                          model.Transaction
			ext, cur, catID, cat, desc sql.NullString
			typ, occurred              string
		)
		if err := rows.Scan(&t.ID, &ext, &t.Amount, &cur, &typ, &catID, &cat, &desc, &occurred, &t.Source); err != nil {
			return nil, err
		}
		t.ExternalID = ext.String
		t.Currency = cur.String
		t.Type = model.TxType(typ)
		t.CategoryID = catID.String
		t.Category = cat.String
		t.Description = desc.String
		t.OccurredAt, err = time.Parse(tsLayout, occurred)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: bad timestamp %q: %w", t.ID, occurred, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadCategories reads all categories ordered by name.
func (l *Ledger) LoadCategories() ([]model.Category, error) {
	rows, err := l.db.Query("SELECT category_id, name, description FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc); err != nil {
			return nil, err
		}
		c.Description = desc.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteFileTracker removes a file tracking entry and the transactions
// imported from that file.
func (l *Ledger) DeleteFileTracker(filePath string) error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM transactions WHERE file_path = ?", filePath); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM file_tracker WHERE file_path = ?", filePath); err != nil {
		return err
	}
	return tx.Commit()
}

// TransactionCount returns the number of stored transactions.
func (l *Ledger) TransactionCount() (int, error) {
	var count int
	err := l.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

// SaveForecastRun stores a forecast and its points. A missing ID or
// CreatedAt is filled in; the stored run is returned.
func (l *Ledger) SaveForecastRun(run model.ForecastRun) (model.ForecastRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := l.db.Begin()
	if err != nil {
		return run, err
	}
	defer func() { _ = tx.Rollback() }()

	neuralUsed := 0
	if run.NeuralUsed {
		neuralUsed = 1
	}
	_, err = tx.Exec(`INSERT INTO forecast_runs
		(run_id, created_at, horizon, history_days, category, neural_used, neural_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(tsLayout), run.Horizon, run.HistoryDays,
		run.Category, neuralUsed, run.NeuralError,
	)
	if err != nil {
		return run, fmt.Errorf("saving forecast run: %w", err)
	}

	for _, p := range run.Points {
		_, err = tx.Exec(`INSERT INTO forecast_points (run_id, day, predicted_expense) VALUES (?, ?, ?)`,
			run.ID, p.Date.Format(dayLayout), p.PredictedExpense)
		if err != nil {
			return run, fmt.Errorf("saving forecast point: %w", err)
		}
	}
	return run, tx.Commit()
}

// ErrNoForecast is returned when no forecast run has been saved.
var ErrNoForecast = errors.New("no saved forecast")

// LatestForecastRun returns the most recently created forecast run.
func (l *Ledger) LatestForecastRun() (model.ForecastRun, error) {
	runs, err := l.ForecastRuns(1)
	if err != nil {
		return model.ForecastRun{}, err
	}
	if len(runs) == 0 {
		return model.ForecastRun{}, ErrNoForecast
	}
	return runs[0], nil
}

// ForecastRuns returns up to limit runs, newest first, with their points.
func (l *Ledger) ForecastRuns(limit int) ([]model.ForecastRun, error) {
	rows, err := l.db.Query(`SELECT
		run_id, created_at, horizon, history_days, category, neural_used, neural_error
		FROM forecast_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []model.ForecastRun
	for rows.Next() {
		var (
			r              model.ForecastRun
			created        string
			category, nerr sql.NullString
			neuralUsed     int
		)
		if err := rows.Scan(&r.ID, &created, &r.Horizon, &r.HistoryDays, &category, &neuralUsed, &nerr); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(tsLayout, created)
		r.Category = category.String
		r.NeuralUsed = neuralUsed != 0
		r.NeuralError = nerr.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		points, err := l.forecastPoints(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Points = points
	}
	return runs, nil
}

func (l *Ledger) forecastPoints(runID string) ([]forecast.ForecastPoint, error) {
	rows, err := l.db.Query(`SELECT day, predicted_expense FROM forecast_points
		WHERE run_id = ? ORDER BY day`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var points []forecast.ForecastPoint
	for rows.Next() {
		var day string
		var p forecast.ForecastPoint
		if err := rows.Scan(&day, &p.PredictedExpense); err != nil {
			return nil, err
		}
		p.Date, err = time.ParseInLocation(dayLayout, day, time.Local)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
