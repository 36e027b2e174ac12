package model

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// RecurringBill is a detected recurring payment. It is derived on every
// analysis run and never persisted.
type RecurringBill struct {
	Description          string
	Amount               decimal.Decimal // group mean, rounded to cents
	Date                 Date            // most recent occurrence
	NextDate             Date
	OccurrenceCount      int
	AvgIntervalDays      int
	PredictedNextPayment *Date // carried from the most recent occurrence
}

type recurringBillJSON struct {
	Amount               json.Number `json:"amount"`
	Description          string      `json:"description"`
	Date                 Date        `json:"date"`
	NextDate             Date        `json:"nextDate"`
	OccurrenceCount      int         `json:"occurrence_count"`
	AvgIntervalDays      int         `json:"avg_interval_days"`
	PredictedNextPayment *Date       `json:"predicted_next_payment"`
}

// MarshalJSON writes the amount as a JSON number rather than decimal's
// quoted string. Descriptions are not HTML-escaped.
func (b RecurringBill) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(recurringBillJSON{
		Amount:               json.Number(b.Amount.String()),
		Description:          b.Description,
		Date:                 b.Date,
		NextDate:             b.NextDate,
		OccurrenceCount:      b.OccurrenceCount,
		AvgIntervalDays:      b.AvgIntervalDays,
		PredictedNextPayment: b.PredictedNextPayment,
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON reads the report format written by MarshalJSON.
func (b *RecurringBill) UnmarshalJSON(data []byte) error {
	var raw recurringBillJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return err
	}
	*b = RecurringBill{
		Description:          raw.Description,
		Amount:               amount,
		Date:                 raw.Date,
		NextDate:             raw.NextDate,
		OccurrenceCount:      raw.OccurrenceCount,
		AvgIntervalDays:      raw.AvgIntervalDays,
		PredictedNextPayment: raw.PredictedNextPayment,
	}
	return nil
}
