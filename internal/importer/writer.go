package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/billsight/internal/model"
)

// Header is the CSV header written by WriteTransactions.
const Header = "id,created_at,external_id,type,amount,date,description,category,counter_party,recurring,tag,account_external_id,location,predicted_next_payment"

// WriteTransactions writes txns (including header) in the canonical ISO layout.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row in Header order.
// NULL amount, unset recurring and NULL prediction become empty cells.
func MarshalTransaction(txn model.Transaction) []string {
	var amount, recurring, predicted string
	if txn.Amount.Valid {
		amount = txn.Amount.Decimal.String()
	}
	if txn.Recurring != nil {
		recurring = strconv.FormatBool(*txn.Recurring)
	}
	if txn.PredictedNextPayment != nil {
		predicted = txn.PredictedNextPayment.String()
	}

	return []string{
		txn.ID,
		txn.CreatedAt,
		txn.ExternalID,
		txn.Type,
		amount,
		txn.Date.String(),
		txn.Description,
		txn.Category,
		txn.CounterParty,
		recurring,
		txn.Tag,
		txn.AccountExternalID,
		txn.Location,
		predicted,
	}
}
