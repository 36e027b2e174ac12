// Package recurring finds recurring bills in transaction history.
package recurring

import (
	"cmp"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/billsight/internal/model"
)

// DefaultMaxIntervalDays is the longest average gap still treated as a bill.
const DefaultMaxIntervalDays = 366

// Options tunes detection.
type Options struct {
	MaxIntervalDays float64
}

// DefaultOptions returns the standard detection settings.
func DefaultOptions() Options {
	return Options{MaxIntervalDays: DefaultMaxIntervalDays}
}

type group struct {
	key     string
	members []model.Transaction
}

// groupBy partitions txns by key. Groups come back in order of first
// appearance and members keep their input order.
func groupBy(txns []model.Transaction, key func(model.Transaction) string) []*group {
	index := make(map[string]*group)
	var groups []*group
	for _, txn := range txns {
		k := key(txn)
		g, ok := index[k]
		if !ok {
			g = &group{key: k}
			index[k] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, txn)
	}
	return groups
}

// Detect groups txns by exact description and returns the groups that
// look like recurring bills, most frequent first. txns is expected in
// ascending date order, as the store returns it.
func Detect(txns []model.Transaction, opts Options) []model.RecurringBill {
	if opts.MaxIntervalDays <= 0 {
		opts.MaxIntervalDays = DefaultMaxIntervalDays
	}

	var bills []model.RecurringBill
	for _, g := range groupBy(txns, func(t model.Transaction) string { return t.Description }) {
		if len(g.members) < 2 {
			continue
		}
		bill, ok := detectGroup(g, opts)
		if ok {
			bills = append(bills, bill)
		}
	}

	slices.SortStableFunc(bills, func(a, b model.RecurringBill) int {
		return cmp.Compare(b.OccurrenceCount, a.OccurrenceCount)
	})
	return bills
}

func detectGroup(g *group, opts Options) (model.RecurringBill, bool) {
	sorted := sortedByDate(g.members)

	avgInterval := meanInterval(sorted)
	if avgInterval <= 0 || avgInterval > opts.MaxIntervalDays {
		return model.RecurringBill{}, false
	}

	last := sorted[len(sorted)-1]
	return model.RecurringBill{
		Description:          g.key,
		Amount:               meanAmount(sorted).Round(2),
		Date:                 last.Date,
		NextDate:             last.Date.AddFractionalDays(avgInterval),
		OccurrenceCount:      len(sorted),
		AvgIntervalDays:      int(math.Floor(avgInterval + 0.5)),
		PredictedNextPayment: last.PredictedNextPayment,
	}, true
}

// sortedByDate returns a copy of txns in ascending date order; same-day
// rows keep their relative order.
func sortedByDate(txns []model.Transaction) []model.Transaction {
	sorted := slices.Clone(txns)
	slices.SortStableFunc(sorted, func(a, b model.Transaction) int {
		return a.Date.Compare(b.Date.Time)
	})
	return sorted
}

// meanInterval is the mean gap in days between consecutive dates of a
// date-sorted slice with at least two members.
func meanInterval(sorted []model.Transaction) float64 {
	var total float64
	for i := 1; i < len(sorted); i++ {
		total += sorted[i].Date.DaysSince(sorted[i-1].Date)
	}
	return total / float64(len(sorted)-1)
}

// meanAmount averages amounts; NULL counts as zero.
func meanAmount(txns []model.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txns {
		sum = sum.Add(t.AmountOrZero())
	}
	return sum.Div(decimal.NewFromInt(int64(len(txns))))
}
