package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cachin/backend/src/database"
	"github.com/username/cachin/backend/src/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { database.DB.Close() })
	return database.DB
}

func TestGetOrCreateSource(t *testing.T) {
	ledger := NewLedgerStore(newTestDB(t))
	ctx := context.Background()

	id1, err := ledger.GetOrCreateSource(ctx, 1, "chase")
	require.NoError(t, err)
	require.NotNil(t, id1)

	// Second lookup resolves to the same row, served from cache.
	id2, err := ledger.GetOrCreateSource(ctx, 1, "chase")
	require.NoError(t, err)
	require.NotNil(t, id2)
	assert.Equal(t, *id1, *id2)

	// Same name under another user is a distinct source.
	id3, err := ledger.GetOrCreateSource(ctx, 2, "chase")
	require.NoError(t, err)
	assert.NotEqual(t, *id1, *id3)

	// Empty labels resolve to no source at all.
	idNone, err := ledger.GetOrCreateSource(ctx, 1, "")
	require.NoError(t, err)
	assert.Nil(t, idNone)
}

func TestTransactionExternalIDUniquePerUser(t *testing.T) {
	ledger := NewLedgerStore(newTestDB(t))
	ctx := context.Background()

	tx := models.Transaction{
		UserID:      1,
		Description: "MERCADO",
		Amount:      decimal.RequireFromString("450.50"),
		Currency:    "UYU",
		ExternalID:  "<msg-1@example.com>",
		Status:      models.StatusConfirmed,
	}
	require.NoError(t, ledger.CreateTransaction(ctx, &tx))
	assert.NotZero(t, tx.ID)

	dup := tx
	dup.ID = 0
	err := ledger.CreateTransaction(ctx, &dup)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	// The same external id under another user is fine.
	other := tx
	other.ID = 0
	other.UserID = 2
	require.NoError(t, ledger.CreateTransaction(ctx, &other))

	exists, err := ledger.TransactionExists(ctx, 1, "<msg-1@example.com>")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ledger.TransactionExists(ctx, 3, "<msg-1@example.com>")
	require.NoError(t, err)
	assert.False(t, exists)

	// Empty external ids never count as duplicates.
	exists, err = ledger.TransactionExists(ctx, 1, "")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEmptyExternalIDNotUnique(t *testing.T) {
	ledger := NewLedgerStore(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		tx := models.Transaction{
			UserID:      1,
			Description: "no id",
			Amount:      decimal.New(100, 0),
			Currency:    "USD",
			Status:      models.StatusConfirmed,
		}
		require.NoError(t, ledger.CreateTransaction(ctx, &tx))
	}
	n, err := ledger.TransactionCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCreateTradeLinksRecords(t *testing.T) {
	ledger := NewLedgerStore(newTestDB(t))
	ctx := context.Background()

	tx := models.Transaction{
		UserID:      1,
		Description: "BUY 10 AAPL @ $150.50",
		Amount:      decimal.RequireFromString("1505.00"),
		Currency:    "USD",
		ExternalID:  "<trade-1@ibkr.com>",
		Status:      models.StatusConfirmed,
	}
	st := models.Stock{
		UserID:     1,
		Symbol:     "AAPL",
		Bought:     true,
		Quantity:   decimal.RequireFromString("10"),
		UnitPrice:  decimal.RequireFromString("150.50"),
		ExternalID: "<trade-1@ibkr.com>",
	}
	require.NoError(t, ledger.CreateTrade(ctx, &tx, &st))

	require.NotNil(t, st.TransactionID)
	assert.Equal(t, tx.ID, *st.TransactionID)

	got, err := ledger.StockByExternalID(ctx, 1, "<trade-1@ibkr.com>")
	require.NoError(t, err)
	assert.Equal(t, "10", got.Quantity.String())
	assert.Equal(t, "150.50", got.UnitPrice.String())
	require.NotNil(t, got.TransactionID)
	assert.Equal(t, tx.ID, *got.TransactionID)

	exists, err := ledger.StockExists(ctx, 1, "<trade-1@ibkr.com>")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateTradeRollsBackOnDuplicateStock(t *testing.T) {
	ledger := NewLedgerStore(newTestDB(t))
	ctx := context.Background()

	mkTrade := func(txExternal string) (models.Transaction, models.Stock) {
		return models.Transaction{
				UserID:     1,
				Amount:     decimal.New(100, 0),
				Currency:   "USD",
				ExternalID: txExternal,
				Status:     models.StatusConfirmed,
			}, models.Stock{
				UserID:     1,
				Symbol:     "AAPL",
				Bought:     true,
				Quantity:   decimal.New(1, 0),
				UnitPrice:  decimal.New(100, 0),
				ExternalID: "<same-stock@ibkr.com>",
			}
	}

	tx1, st1 := mkTrade("<t1@ibkr.com>")
	require.NoError(t, ledger.CreateTrade(ctx, &tx1, &st1))

	tx2, st2 := mkTrade("<t2@ibkr.com>")
	err := ledger.CreateTrade(ctx, &tx2, &st2)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	// The paired transaction insert must have been rolled back.
	_, err = ledger.TransactionByExternalID(ctx, 1, "<t2@ibkr.com>")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreatePendingAndList(t *testing.T) {
	ledger := NewLedgerStore(newTestDB(t))
	ctx := context.Background()

	p := models.PendingTransaction{
		UserID:     1,
		ExternalID: "<dup@example.com>",
		Payload:    []byte(`{"description":"MERCADO"}`),
		Reason:     models.ReasonDuplicate,
	}
	require.NoError(t, ledger.CreatePending(ctx, &p))
	assert.NotZero(t, p.ID)

	got, err := ledger.PendingByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "<dup@example.com>", got[0].ExternalID)
	assert.Equal(t, models.ReasonDuplicate, got[0].Reason)
	assert.JSONEq(t, `{"description":"MERCADO"}`, string(got[0].Payload))
}
