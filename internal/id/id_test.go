package id

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/billsight/internal/model"
)

func netflix(amount string) model.Transaction {
	txn := model.Transaction{
		Date:        model.NewDate(2024, time.January, 1),
		Description: "Netflix",
	}
	if amount != "" {
		txn.Amount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	return txn
}

func TestNaturalKey(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"-9.99", "2024-01-01|Netflix|-9.99"},
		{"10", "2024-01-01|Netflix|10.00"},
		{"", "2024-01-01|Netflix|null"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NaturalKey(netflix(tt.amount)))
	}
}

func TestForTransaction_Stable(t *testing.T) {
	a := ForTransaction(netflix("-9.99"), 1)
	b := ForTransaction(netflix("-9.990"), 1)
	assert.Equal(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestForTransaction_DiffersByAmount(t *testing.T) {
	assert.NotEqual(t, ForTransaction(netflix("-9.99"), 1), ForTransaction(netflix("-10.99"), 1))
	assert.NotEqual(t, ForTransaction(netflix("-9.99"), 1), ForTransaction(netflix(""), 1))
}

func TestForTransaction_TrimsDescription(t *testing.T) {
	padded := netflix("-9.99")
	padded.Description = "  Netflix "
	assert.Equal(t, ForTransaction(netflix("-9.99"), 1), ForTransaction(padded, 1))
}

func TestForTransaction_Occurrence(t *testing.T) {
	first := ForTransaction(netflix("-9.99"), 1)
	second := ForTransaction(netflix("-9.99"), 2)
	third := ForTransaction(netflix("-9.99"), 3)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, second, third)
	assert.Equal(t, first, ForTransaction(netflix("-9.99"), 0), "occurrence below 2 is the plain key")
	assert.Equal(t, second, ForTransaction(netflix("-9.99"), 2))
}
