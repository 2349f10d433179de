package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/model"
)

// ErrSchemaMissing is returned when the backend tables do not exist.
var ErrSchemaMissing = errors.New("ledger schema not found in database")

// PostgresSource reads one user's transactions straight from the ledger
// backend's database.
type PostgresSource struct {
	db     *sql.DB
	userID int64
}

// NewPostgresSource wraps an open database handle.
func NewPostgresSource(db *sql.DB, userID int64) *PostgresSource {
	return &PostgresSource{db: db, userID: userID}
}

// OpenPostgres connects with dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, userID int64) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresSource(db, userID), nil
}

// Close closes the underlying database handle.
func (p *PostgresSource) Close() error {
	return p.db.Close()
}

// SourceName identifies records imported from this source.
func (p *PostgresSource) SourceName() string {
	return "postgres:" + strconv.FormatInt(p.userID, 10)
}

// Transactions returns the user's transactions on or after since, oldest first.
func (p *PostgresSource) Transactions(ctx context.Context, since time.Time) ([]model.Transaction, error) {
	query := `
		SELECT t.id, t.amount, COALESCE(t.currency, ''), t.transaction_type,
		       t.transaction_date, COALESCE(t.description, ''), t.category_id, c.name
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.transaction_date >= $2
		ORDER BY t.transaction_date, t.id`
	rows, err := p.db.QueryContext(ctx, query, p.userID, since)
	if err != nil {
		return nil, wrapPQ("failed to query transactions", err)
	}
	defer func() { _ = rows.Close() }()

	src := p.SourceName()
	var out []model.Transaction
	for rows.Next() {
		var (
			r          pgRow
			categoryID sql.NullInt64
			category   sql.NullString
		)
		if err := rows.Scan(&r.id, &r.amount, &r.currency, &r.txType,
			&r.date, &r.description, &categoryID, &category); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if categoryID.Valid {
			r.categoryID = strconv.FormatInt(categoryID.Int64, 10)
		}
		r.category = category.String

		tx, err := r.toTransaction(src)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", r.id, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Categories returns the user's categories.
func (p *PostgresSource) Categories(ctx context.Context) ([]model.Category, error) {
	query := `
		SELECT id, name, COALESCE(description, '')
		FROM categories
		WHERE user_id = $1
		ORDER BY name`
	rows, err := p.db.QueryContext(ctx, query, p.userID)
	if err != nil {
		return nil, wrapPQ("failed to query categories", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Category
	for rows.Next() {
		var (
			id int64
			c  model.Category
		)
		if err := rows.Scan(&id, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.ID = strconv.FormatInt(id, 10)
		out = append(out, c)
	}
	return out, rows.Err()
}

type pgRow struct {
	id          int64
	amount      decimal.Decimal
	currency    string
	txType      string
	date        time.Time
	description string
	categoryID  string
	category    string
}

func (r pgRow) toTransaction(src string) (model.Transaction, error) {
	typ := model.TxType(r.txType)
	if !typ.Valid() {
		return model.Transaction{}, fmt.Errorf("%w: %q", ErrUnknownTxType, r.txType)
	}
	ext := strconv.FormatInt(r.id, 10)
	return model.Transaction{
		ID:          StableID(src, ext),
		ExternalID:  ext,
		Amount:      r.amount.Abs(),
		Currency:    r.currency,
		Type:        typ,
		CategoryID:  r.categoryID,
		Category:    r.category,
		Description: r.description,
		OccurredAt:  r.date,
		Source:      src,
	}, nil
}

// wrapPQ maps an undefined_table error onto ErrSchemaMissing.
func wrapPQ(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
		return fmt.Errorf("%s: %w: %s", msg, ErrSchemaMissing, pqErr.Message)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
