package recurring

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/billsight/internal/model"
	"github.com/cleared-dev/billsight/internal/store"
	"github.com/cleared-dev/billsight/internal/store/memory"
	"github.com/cleared-dev/billsight/internal/store/mocks"
)

func TestAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for _, txn := range []model.Transaction{
		tx("Netflix", "9.99", "2024-03-02"),
		tx("Coffee", "-3", "2024-01-05"),
		tx("Netflix", "9.99", "2024-01-01"),
		tx("Netflix", "9.99", "2024-02-01"),
	} {
		require.NoError(t, s.Upsert(ctx, "transactions", txn, "id"))
	}

	bills, err := NewAnalyzer(s, "transactions", DefaultOptions()).Analyze(ctx, store.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, 3, bills[0].OccurrenceCount)
	assert.Equal(t, "2024-03-02", bills[0].Date.String())
}

func TestAnalyzer_ForcesDateOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := mocks.NewMockStore(ctrl)
	since := model.NewDate(2024, 1, 1)
	s.EXPECT().
		Read(gomock.Any(), "txns", store.ReadOptions{Since: &since, OrderBy: "date"}).
		Return(nil, nil)

	bills, err := NewAnalyzer(s, "txns", DefaultOptions()).
		Analyze(context.Background(), store.ReadOptions{Since: &since, OrderBy: "amount", Descending: true})
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestAnalyzer_ReadErrorAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("connection refused")
	s := mocks.NewMockStore(ctrl)
	s.EXPECT().Read(gomock.Any(), "transactions", gomock.Any()).Return(nil, boom)

	bills, err := NewAnalyzer(s, "transactions", DefaultOptions()).Analyze(context.Background(), store.ReadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetching transactions")
	assert.Nil(t, bills)
}
