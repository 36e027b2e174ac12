// Package store defines the persistence collaborator that ingestion writes
// to and analysis reads from.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/cleared-dev/billsight/internal/model"
)

const (
	// DefaultTable is the transactions table name.
	DefaultTable = "transactions"
	// DefaultConflictKey is the primary key upserts resolve conflicts on.
	DefaultConflictKey = "id"
	// DefaultOrderBy is the column Read orders by when none is given.
	DefaultOrderBy = "date"
)

// Columns are the canonical transaction columns a store reads and writes.
var Columns = []string{"id", "date", "description", "amount", "recurring", "predicted_next_payment"}

// ErrUnknownColumn is returned for order or conflict columns outside Columns.
var ErrUnknownColumn = errors.New("unknown column")

// ReadOptions filters and orders a Read. The zero value reads every row
// ordered by ascending date.
type ReadOptions struct {
	Since       *model.Date // date >= Since
	Description string      // exact match when non-empty
	OrderBy     string
	Descending  bool
}

// Store reads and upserts transaction rows.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	Read(ctx context.Context, table string, opts ReadOptions) ([]model.Transaction, error)
	Upsert(ctx context.Context, table string, txn model.Transaction, conflictKey string) error
	Close()
}

// CheckColumn returns ErrUnknownColumn unless name is one of Columns.
func CheckColumn(name string) error {
	if !slices.Contains(Columns, name) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return nil
}

// OrderColumn returns opts.OrderBy, or DefaultOrderBy when empty, after checking it.
func (opts ReadOptions) OrderColumn() (string, error) {
	col := opts.OrderBy
	if col == "" {
		col = DefaultOrderBy
	}
	if err := CheckColumn(col); err != nil {
		return "", err
	}
	return col, nil
}

// Matches reports whether txn passes the Since and Description filters.
func (opts ReadOptions) Matches(txn model.Transaction) bool {
	if opts.Since != nil && txn.Date.Before(opts.Since.Time) {
		return false
	}
	if opts.Description != "" && txn.Description != opts.Description {
		return false
	}
	return true
}
