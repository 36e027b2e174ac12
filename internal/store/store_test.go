package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/billsight/internal/model"
)

func TestCheckColumn(t *testing.T) {
	for _, col := range Columns {
		assert.NoError(t, CheckColumn(col))
	}
	err := CheckColumn("id; DROP TABLE transactions")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestReadOptions_OrderColumn(t *testing.T) {
	col, err := ReadOptions{}.OrderColumn()
	require.NoError(t, err)
	assert.Equal(t, "date", col)

	col, err = ReadOptions{OrderBy: "amount"}.OrderColumn()
	require.NoError(t, err)
	assert.Equal(t, "amount", col)

	_, err = ReadOptions{OrderBy: "created_at"}.OrderColumn()
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestReadOptions_Matches(t *testing.T) {
	since := model.NewDate(2024, time.February, 1)
	opts := ReadOptions{Since: &since, Description: "Netflix"}

	assert.True(t, opts.Matches(model.Transaction{Date: since, Description: "Netflix"}))
	assert.True(t, opts.Matches(model.Transaction{Date: model.NewDate(2024, time.March, 1), Description: "Netflix"}))
	assert.False(t, opts.Matches(model.Transaction{Date: model.NewDate(2024, time.January, 31), Description: "Netflix"}))
	assert.False(t, opts.Matches(model.Transaction{Date: since, Description: "netflix"}))
	assert.True(t, ReadOptions{}.Matches(model.Transaction{}))
}
