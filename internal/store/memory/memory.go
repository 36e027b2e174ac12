// Package memory is an in-process Store used for dry runs, CSV-backed
// analysis and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cleared-dev/billsight/internal/model"
	"github.com/cleared-dev/billsight/internal/store"
)

type table struct {
	rows  map[string]model.Transaction
	order []string // ids in first-insert order
}

// Store keeps tables in memory. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	tables map[string]*table
}

// New returns an empty Store.
func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// Upsert inserts txn or replaces the row with the same id.
func (s *Store) Upsert(ctx context.Context, name string, txn model.Transaction, conflictKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if conflictKey != store.DefaultConflictKey {
		return fmt.Errorf("memory store only resolves conflicts on %q: %w", store.DefaultConflictKey, store.ErrUnknownColumn)
	}
	if txn.ID == "" {
		return fmt.Errorf("upserting into %s: empty id", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		t = &table{rows: make(map[string]model.Transaction)}
		s.tables[name] = t
	}
	if _, exists := t.rows[txn.ID]; !exists {
		t.order = append(t.order, txn.ID)
	}
	t.rows[txn.ID] = txn
	return nil
}

// Read returns matching rows sorted by opts' order column. Rows that tie
// keep their insertion order.
func (s *Store) Read(ctx context.Context, name string, opts store.ReadOptions) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	col, err := opts.OrderColumn()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var rows []model.Transaction
	if t, ok := s.tables[name]; ok {
		for _, id := range t.order {
			if txn := t.rows[id]; opts.Matches(txn) {
				rows = append(rows, txn)
			}
		}
	}
	s.mu.Unlock()

	slices.SortStableFunc(rows, func(a, b model.Transaction) int {
		c := compareColumn(col, a, b)
		if opts.Descending {
			return -c
		}
		return c
	})
	return rows, nil
}

// Len returns the number of rows in a table.
func (s *Store) Len(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[name]; ok {
		return len(t.order)
	}
	return 0
}

// Close is a no-op.
func (s *Store) Close() {}

func compareColumn(col string, a, b model.Transaction) int {
	switch col {
	case "id":
		return cmp.Compare(a.ID, b.ID)
	case "description":
		return cmp.Compare(a.Description, b.Description)
	case "amount":
		return compareNullable(a.Amount.Valid, b.Amount.Valid, func() int {
			return a.Amount.Decimal.Cmp(b.Amount.Decimal)
		})
	case "recurring":
		return compareNullable(a.Recurring != nil, b.Recurring != nil, func() int {
			return cmp.Compare(boolRank(*a.Recurring), boolRank(*b.Recurring))
		})
	case "predicted_next_payment":
		return compareNullable(a.PredictedNextPayment != nil, b.PredictedNextPayment != nil, func() int {
			return a.PredictedNextPayment.Compare(b.PredictedNextPayment.Time)
		})
	default:
		return a.Date.Compare(b.Date.Time)
	}
}

// compareNullable orders NULLs last, like Postgres ascending order.
func compareNullable(aValid, bValid bool, both func() int) int {
	switch {
	case aValid && bValid:
		return both()
	case aValid:
		return -1
	case bValid:
		return 1
	default:
		return 0
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
