package recurring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/billsight/internal/model"
)

func withCategory(t model.Transaction, category string) model.Transaction {
	t.Category = category
	return t
}

func TestFlag_RecurringGroup(t *testing.T) {
	out := Flag([]model.Transaction{
		withCategory(tx("Netflix", "-9.99", "2024-01-01"), "Subscriptions"),
		withCategory(tx("Netflix", "-9.99", "2024-01-31"), "Subscriptions"),
		withCategory(tx("Netflix", "-10.99", "2024-03-01"), "Subscriptions"),
	})
	require.Len(t, out, 3)
	for _, txn := range out {
		require.NotNil(t, txn.Recurring)
		assert.True(t, *txn.Recurring)
		require.NotNil(t, txn.PredictedNextPayment)
	}
	// Gaps 30 and 30: each row is predicted 30 days after itself.
	assert.Equal(t, "2024-01-31", out[0].PredictedNextPayment.String())
	assert.Equal(t, "2024-03-01", out[1].PredictedNextPayment.String())
	assert.Equal(t, "2024-03-31", out[2].PredictedNextPayment.String())
}

func TestFlag_TooManyAmounts(t *testing.T) {
	out := Flag([]model.Transaction{
		tx("Groceries", "-50", "2024-01-01"),
		tx("Groceries", "-61.20", "2024-01-08"),
		tx("Groceries", "-47.05", "2024-01-15"),
	})
	for _, txn := range out {
		require.NotNil(t, txn.Recurring)
		assert.False(t, *txn.Recurring)
		assert.Nil(t, txn.PredictedNextPayment)
	}
}

func TestFlag_SingletonAndCategorySplit(t *testing.T) {
	out := Flag([]model.Transaction{
		withCategory(tx("Amazon", "-20", "2024-01-01"), "Shopping"),
		withCategory(tx("Coffee", "-3", "2024-01-02"), "Food"),
		withCategory(tx("Amazon", "-20", "2024-02-01"), "Subscriptions"),
	})
	require.Len(t, out, 3)
	for _, txn := range out {
		assert.False(t, *txn.Recurring, "%s/%s", txn.Description, txn.Category)
	}
}

func TestFlag_GroupOrder(t *testing.T) {
	out := Flag([]model.Transaction{
		tx("A", "1", "2024-01-01"),
		tx("B", "1", "2024-01-02"),
		tx("A", "1", "2024-01-08"),
	})
	got := []string{out[0].Description, out[1].Description, out[2].Description}
	assert.Equal(t, []string{"A", "A", "B"}, got)
}

func TestFlag_ClearsStalePrediction(t *testing.T) {
	stale := model.NewDate(2030, 1, 1)
	row := tx("Once", "-5", "2024-01-01")
	row.PredictedNextPayment = &stale
	out := Flag([]model.Transaction{row})
	assert.Nil(t, out[0].PredictedNextPayment)
}
