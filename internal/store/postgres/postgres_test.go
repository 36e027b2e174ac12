package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/billsight/internal/model"
	"github.com/cleared-dev/billsight/internal/store"
)

func TestSelectQuery_Defaults(t *testing.T) {
	q, args, err := selectQuery("transactions", store.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT id::text, date::date, description, amount::text, recurring, predicted_next_payment::text FROM "transactions" ORDER BY "date" ASC`, q)
	assert.Empty(t, args)
}

func TestSelectQuery_Filters(t *testing.T) {
	since := model.NewDate(2024, time.February, 1)
	q, args, err := selectQuery("public.transactions", store.ReadOptions{
		Since:       &since,
		Description: "Netflix",
		OrderBy:     "amount",
		Descending:  true,
	})
	require.NoError(t, err)
	assert.Contains(t, q, `FROM "public"."transactions" WHERE date::date >= $1::date AND description = $2 ORDER BY "amount" DESC`)
	assert.Equal(t, []any{"2024-02-01", "Netflix"}, args)
}

func TestSelectQuery_Rejects(t *testing.T) {
	_, _, err := selectQuery("transactions", store.ReadOptions{OrderBy: "1; DROP TABLE x"})
	assert.ErrorIs(t, err, store.ErrUnknownColumn)

	_, _, err = selectQuery("", store.ReadOptions{})
	assert.Error(t, err)

	_, _, err = selectQuery("public.", store.ReadOptions{})
	assert.Error(t, err)
}

func TestQuoteTable_EscapesQuotes(t *testing.T) {
	got, err := quoteTable(`tx"s`)
	require.NoError(t, err)
	assert.Equal(t, `"tx""s"`, got)
}

func TestUpsertQuery(t *testing.T) {
	q, err := upsertQuery("transactions", "id")
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "transactions" ("id", "date", "description", "amount", "recurring", "predicted_next_payment") `+
		`VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT ("id") DO UPDATE SET `+
		`"date" = EXCLUDED."date", "description" = EXCLUDED."description", "amount" = EXCLUDED."amount", `+
		`"recurring" = EXCLUDED."recurring", "predicted_next_payment" = EXCLUDED."predicted_next_payment"`, q)

	_, err = upsertQuery("transactions", "external_id")
	assert.ErrorIs(t, err, store.ErrUnknownColumn)
}

func TestUpsertArgs(t *testing.T) {
	yes := true
	next := model.NewDate(2024, time.April, 1)
	args := upsertArgs(model.Transaction{
		ID:                   "t1",
		Date:                 model.NewDate(2024, time.March, 2),
		Description:          "Netflix",
		Amount:               decimal.NewNullDecimal(decimal.RequireFromString("-9.99")),
		Recurring:            &yes,
		PredictedNextPayment: &next,
	})
	assert.Equal(t, []any{"t1", "2024-03-02", "Netflix", "-9.99", true, "2024-04-01"}, args)

	args = upsertArgs(model.Transaction{ID: "t2", Date: model.NewDate(2024, time.March, 2), Description: "Coffee"})
	assert.Equal(t, []any{"t2", "2024-03-02", "Coffee", nil, nil, nil}, args)
}

func TestParseStoredDate(t *testing.T) {
	d, err := parseStoredDate("2024-04-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", d.String())

	d, err = parseStoredDate("2024-04-01T00:00:00+00:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", d.String())

	_, err = parseStoredDate("soon")
	assert.Error(t, err)
}

// TestStore_Integration runs against a scratch database when
// BILLSIGHT_TEST_DATABASE_URL is set.
func TestStore_Integration(t *testing.T) {
	url := os.Getenv("BILLSIGHT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BILLSIGHT_TEST_DATABASE_URL not set, skipping postgres test")
	}
	ctx := context.Background()

	// One connection, so the temp table stays visible to every query.
	s, err := Open(ctx, url, 1)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, `CREATE TEMP TABLE billsight_test (
		id text PRIMARY KEY,
		date date NOT NULL,
		description text,
		amount numeric,
		recurring boolean,
		predicted_next_payment date
	)`)
	require.NoError(t, err)

	row := model.Transaction{
		ID:          "t1",
		Date:        model.NewDate(2024, time.January, 1),
		Description: "Netflix",
		Amount:      decimal.NewNullDecimal(decimal.RequireFromString("-9.99")),
	}
	require.NoError(t, s.Upsert(ctx, "billsight_test", row, "id"))
	row.Amount = decimal.NullDecimal{}
	require.NoError(t, s.Upsert(ctx, "billsight_test", row, "id"))

	got, err := s.Read(ctx, "billsight_test", store.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Netflix", got[0].Description)
	assert.False(t, got[0].Amount.Valid)
}
