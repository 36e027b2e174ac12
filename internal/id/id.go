package id

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cleared-dev/billsight/internal/model"
)

// namespace scopes generated transaction ids. Changing it re-keys every
// previously ingested id-less row.
var namespace = uuid.MustParse("6f1c2b8e-4d7a-5e0f-9b3c-2a1d8e7f6c50")

// ForTransaction derives a stable id from date, description and amount so
// that re-uploading the same file upserts instead of duplicating.
// occurrence numbers identical rows within one file from 1; rows after the
// first get their own id so none of them is overwritten.
func ForTransaction(txn model.Transaction, occurrence int) string {
	key := NaturalKey(txn)
	if occurrence > 1 {
		key += "|#" + strconv.Itoa(occurrence)
	}
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// NaturalKey returns the key ForTransaction hashes, e.g. "2024-01-01|Netflix|-9.99".
func NaturalKey(txn model.Transaction) string {
	amount := "null"
	if txn.Amount.Valid {
		amount = txn.Amount.Decimal.StringFixed(2)
	}
	return strings.Join([]string{
		txn.Date.String(),
		strings.TrimSpace(txn.Description),
		amount,
	}, "|")
}
