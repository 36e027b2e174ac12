// Package postgres implements store.Store on a hosted Postgres table
// through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/billsight/internal/model"
	"github.com/cleared-dev/billsight/internal/store"
)

// Store is a pgxpool-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to url and verifies the connection.
func Open(ctx context.Context, url string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Read selects the canonical columns of every matching row.
func (s *Store) Read(ctx context.Context, table string, opts store.ReadOptions) ([]model.Transaction, error) {
	query, args, err := selectQuery(table, opts)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s rows: %w", table, err)
	}
	return txns, nil
}

// Upsert inserts txn, updating every other column when conflictKey collides.
func (s *Store) Upsert(ctx context.Context, table string, txn model.Transaction, conflictKey string) error {
	query, err := upsertQuery(table, conflictKey)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, upsertArgs(txn)...); err != nil {
		return fmt.Errorf("upserting %s into %s: %w", txn.ID, table, err)
	}
	return nil
}

// quoteTable sanitizes "table" or "schema.table".
func quoteTable(table string) (string, error) {
	if table == "" {
		return "", fmt.Errorf("empty table name")
	}
	parts := strings.Split(table, ".")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

func selectQuery(table string, opts store.ReadOptions) (string, []any, error) {
	tbl, err := quoteTable(table)
	if err != nil {
		return "", nil, err
	}
	orderCol, err := opts.OrderColumn()
	if err != nil {
		return "", nil, err
	}

	var where []string
	var args []any
	if opts.Since != nil {
		args = append(args, opts.Since.String())
		where = append(where, fmt.Sprintf("date::date >= $%d::date", len(args)))
	}
	if opts.Description != "" {
		args = append(args, opts.Description)
		where = append(where, fmt.Sprintf("description = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT id::text, date::date, description, amount::text, recurring, predicted_next_payment::text FROM ")
	b.WriteString(tbl)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(pgx.Identifier{orderCol}.Sanitize())
	if opts.Descending {
		b.WriteString(" DESC")
	} else {
		b.WriteString(" ASC")
	}
	return b.String(), args, nil
}

func upsertQuery(table, conflictKey string) (string, error) {
	tbl, err := quoteTable(table)
	if err != nil {
		return "", err
	}
	if err := store.CheckColumn(conflictKey); err != nil {
		return "", err
	}

	cols := make([]string, len(store.Columns))
	params := make([]string, len(store.Columns))
	var sets []string
	for i, c := range store.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
		if c != conflictKey {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", cols[i], cols[i]))
		}
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tbl,
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
		pgx.Identifier{conflictKey}.Sanitize(),
		strings.Join(sets, ", "),
	), nil
}

// upsertArgs binds txn in store.Columns order. Dates and amounts go as text
// so the same statement works against date/text and numeric/float columns.
func upsertArgs(txn model.Transaction) []any {
	var amount, predicted any
	if txn.Amount.Valid {
		amount = txn.Amount.Decimal.String()
	}
	if txn.PredictedNextPayment != nil {
		predicted = txn.PredictedNextPayment.String()
	}
	var recurring any
	if txn.Recurring != nil {
		recurring = *txn.Recurring
	}
	return []any{txn.ID, txn.Date.String(), txn.Description, amount, recurring, predicted}
}

func scanTransaction(row pgx.Row) (model.Transaction, error) {
	var (
		id          string
		date        time.Time
		description *string
		amount      *string
		recurring   *bool
		predicted   *string
	)
	if err := row.Scan(&id, &date, &description, &amount, &recurring, &predicted); err != nil {
		return model.Transaction{}, err
	}

	txn := model.Transaction{
		ID:        id,
		Date:      model.DateOf(date),
		Recurring: recurring,
	}
	if description != nil {
		txn.Description = *description
	}
	if amount != nil {
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", *amount, err)
		}
		txn.Amount = decimal.NewNullDecimal(d)
	}
	if predicted != nil && *predicted != "" {
		d, err := parseStoredDate(*predicted)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing predicted_next_payment %q: %w", *predicted, err)
		}
		txn.PredictedNextPayment = &d
	}
	return txn, nil
}

// parseStoredDate accepts a date column rendered as text, or the leading
// date of a timestamp stored in a text column.
func parseStoredDate(s string) (model.Date, error) {
	if len(s) > len(model.DateFormat) {
		s = s[:len(model.DateFormat)]
	}
	return model.ParseDate(s)
}
