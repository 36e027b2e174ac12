package recurring

import (
	"context"
	"fmt"

	"github.com/cleared-dev/billsight/internal/logger"
	"github.com/cleared-dev/billsight/internal/model"
	"github.com/cleared-dev/billsight/internal/store"
)

// Analyzer reads a transactions table and detects recurring bills in it.
type Analyzer struct {
	store store.Store
	table string
	opts  Options
}

// NewAnalyzer creates an Analyzer over table.
func NewAnalyzer(s store.Store, table string, opts Options) *Analyzer {
	return &Analyzer{store: s, table: table, opts: opts}
}

// Analyze fetches every transaction matching filter in ascending date order
// and runs Detect over them. A failed read aborts with no partial result.
func (a *Analyzer) Analyze(ctx context.Context, filter store.ReadOptions) ([]model.RecurringBill, error) {
	log := logger.FromContext(ctx)

	filter.OrderBy = "date"
	filter.Descending = false
	txns, err := a.store.Read(ctx, a.table, filter)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	log.Debug().Int("transactions", len(txns)).Str("table", a.table).Msg("fetched transactions")

	bills := Detect(txns, a.opts)
	log.Info().Int("transactions", len(txns)).Int("recurring_bills", len(bills)).Msg("analysis complete")
	return bills, nil
}
