package recurring

import (
	"github.com/cleared-dev/billsight/internal/model"
)

// maxDistinctAmounts is how many different amounts a flagged group may
// contain, allowing e.g. one price change.
const maxDistinctAmounts = 2

// Flag marks each transaction's recurring column and fills its
// predicted_next_payment. Transactions are grouped by description and
// category; a group is recurring when it has more than one member and at
// most two distinct amounts. Each member of a recurring group is predicted
// at its own date plus the group's mean interval.
//
// The result lists groups in order of first appearance, members in input order.
func Flag(txns []model.Transaction) []model.Transaction {
	groups := groupBy(txns, func(t model.Transaction) string {
		return t.Description + "\x00" + t.Category
	})

	out := make([]model.Transaction, 0, len(txns))
	for _, g := range groups {
		recurring := len(g.members) > 1 && distinctAmounts(g.members) <= maxDistinctAmounts

		var avgInterval float64
		if recurring {
			avgInterval = meanInterval(sortedByDate(g.members))
		}

		for _, txn := range g.members {
			flag := recurring
			txn.Recurring = &flag
			txn.PredictedNextPayment = nil
			if recurring {
				next := txn.Date.AddFractionalDays(avgInterval)
				txn.PredictedNextPayment = &next
			}
			out = append(out, txn)
		}
	}
	return out
}

func distinctAmounts(txns []model.Transaction) int {
	seen := make(map[string]struct{})
	for _, t := range txns {
		key := "null"
		if t.Amount.Valid {
			key = t.Amount.Decimal.String()
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}
