package account_test

import (
	"context"
	"testing"
	"time"

	"sooicy-orders/internal/account"
	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/database/testdb"
	"sooicy-orders/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *account.Service {
	return account.NewService(testdb.New(t), logger.NewNopLogger())
}

func TestCreateOrGetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	p := account.Profile{Email: "kofi@example.com", Name: "Kofi", Phone: "0711111111", Address: "12 Palm St"}

	first, isNew, err := svc.CreateOrGet(ctx, p)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, first.IsMember)
	assert.Equal(t, 0, first.TotalOrders)
	assert.True(t, first.TotalSpent.IsZero())

	second, isNew, err := svc.CreateOrGet(ctx, p)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateOrGetPatchesChangedFields(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, _, err := svc.CreateOrGet(ctx, account.Profile{Email: "esi@example.com", Name: "Esi", Phone: "0722222222", Address: "1 Oak Rd"})
	require.NoError(t, err)

	_, isNew, err := svc.CreateOrGet(ctx, account.Profile{Email: "esi@example.com", Name: "Esi Mensah", Phone: "0733333333"})
	require.NoError(t, err)
	assert.False(t, isNew)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Esi Mensah", got.Name)
	assert.Equal(t, "0733333333", got.Phone)
	assert.Equal(t, "1 Oak Rd", got.Address, "empty address must not overwrite")
}

func TestCreateOrGetRequiresFields(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.CreateOrGet(context.Background(), account.Profile{Email: "x@example.com", Name: "X"})
	assert.True(t, apperr.IsValidation(err))
}

func TestGetUnknownAccount(t *testing.T) {
	svc := newService(t)
	_, err := svc.Get(context.Background(), 99)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRecordOrderAccumulates(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	user, _, err := svc.CreateOrGet(ctx, account.Profile{Email: "yaw@example.com", Name: "Yaw", Phone: "0744444444"})
	require.NoError(t, err)

	at := time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)
	require.NoError(t, account.RecordOrder(ctx, svc.DB, user.ID, decimal.RequireFromString("12.50"), at))
	require.NoError(t, account.RecordOrder(ctx, svc.DB, user.ID, decimal.RequireFromString("7.25"), at.Add(time.Hour)))

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalOrders)
	assert.True(t, got.TotalSpent.Equal(decimal.RequireFromString("19.75")), "total spent %s", got.TotalSpent)
	require.NotNil(t, got.LastOrderDate)
	assert.True(t, got.LastOrderDate.Equal(at.Add(time.Hour)))
}

func TestRecordOrderUnknownAccount(t *testing.T) {
	svc := newService(t)
	err := account.RecordOrder(context.Background(), svc.DB, 404, decimal.NewFromInt(1), time.Now())
	assert.True(t, apperr.IsNotFound(err))
}
