package model

import (
	"github.com/shopspring/decimal"
)

// Transaction is one row of the transactions table.
type Transaction struct {
	ID                   string
	Date                 Date
	Description          string
	Amount               decimal.NullDecimal // invalid = NULL
	Recurring            *bool
	PredictedNextPayment *Date

	// Extended export columns. Carried through CSV, never written to the store.
	CreatedAt         string
	ExternalID        string
	Type              string
	Category          string
	CounterParty      string
	Tag               string
	AccountExternalID string
	Location          string
}

// AmountOrZero returns the amount, treating NULL as zero.
func (t Transaction) AmountOrZero() decimal.Decimal {
	if !t.Amount.Valid {
		return decimal.Zero
	}
	return t.Amount.Decimal
}
