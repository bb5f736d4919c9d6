package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCashback_RejectsNegativeAmounts(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCashbackRepository(gormDB)
	ctx := context.Background()

	_, err := repo.Debit(ctx, 42, decimal.NewFromInt(-1), nil)
	assert.ErrorIs(t, err, repository.ErrNegativeAmount)

	_, err = repo.Credit(ctx, 42, decimal.NewFromInt(-1), nil)
	assert.ErrorIs(t, err, repository.ErrNegativeAmount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCashbackEntries_NewestFirst(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCashbackRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "telegram_id", "checkout_id", "kind", "amount", "balance_after", "created_at"}).
		AddRow(2, int64(42), nil, "debit", "1.00", "0.50", now).
		AddRow(1, int64(42), nil, "credit", "1.50", "1.50", now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "cashback_entries" WHERE telegram_id = $1 ORDER BY id DESC`)).
		WillReturnRows(rows)

	entries, err := repo.Entries(context.Background(), 42, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.EntryDebit, entries[0].Kind)
	assert.Nil(t, entries[0].CheckoutID)
	assert.True(t, entries[1].BalanceAfter.Equal(decimal.RequireFromString("1.5")))
}
