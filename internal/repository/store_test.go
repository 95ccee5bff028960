package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/db"
	"github.com/nurpe/logistics-billing/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(zerolog.Nop()))
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(database))
	return NewStore(database)
}

func newExpedition(t *testing.T, store *Store, amount *decimal.Decimal) *model.Expedition {
	t.Helper()
	expedition := &model.Expedition{
		Weight:          decimal.NewFromInt(1),
		Volume:          decimal.NewFromInt(1),
		EstimatedAmount: amount,
		Status:          model.ExpeditionPending,
	}
	require.NoError(t, store.Dispatch.CreateExpedition(context.Background(), expedition))
	return expedition
}

func newInvoice(t *testing.T, store *Store) *model.Invoice {
	t.Helper()
	invoice := &model.Invoice{IssueDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Billing.CreateInvoice(context.Background(), invoice))
	return invoice
}

func TestClaimDriverOnlyOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Dispatch.CreateDriver(ctx, &model.Driver{
		Code: "D1", Name: "Amine", LicenseNumber: "0000000001", LicenseCategory: model.LicenseB, Available: true,
	}))

	claimed, err := store.Dispatch.ClaimDriver(ctx, "D1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.Dispatch.ClaimDriver(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, claimed)

	driver, err := store.Dispatch.GetDriver(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, driver.Available)

	claimed, err = store.Dispatch.ClaimDriver(ctx, "NOBODY")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestLinkedAmountsKeepsUnpricedExpeditions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	invoice := newInvoice(t, store)
	amount := decimal.RequireFromString("250.50")

	priced := newExpedition(t, store, &amount)
	unpriced := newExpedition(t, store, nil)
	require.NoError(t, store.Billing.CreateLink(ctx, &model.ExpeditionInvoice{ExpeditionID: priced.ID, InvoiceID: invoice.ID}))
	require.NoError(t, store.Billing.CreateLink(ctx, &model.ExpeditionInvoice{ExpeditionID: unpriced.ID, InvoiceID: invoice.ID}))

	amounts, err := store.Billing.LinkedAmounts(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, amounts, 2)
	require.NotNil(t, amounts[0])
	assert.Equal(t, "250.50", amounts[0].StringFixed(2))
	assert.Nil(t, amounts[1])
}

func TestLinkUniquePerExpedition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	first := newInvoice(t, store)
	second := newInvoice(t, store)
	expedition := newExpedition(t, store, nil)

	require.NoError(t, store.Billing.CreateLink(ctx, &model.ExpeditionInvoice{ExpeditionID: expedition.ID, InvoiceID: first.ID}))
	err := store.Billing.CreateLink(ctx, &model.ExpeditionInvoice{ExpeditionID: expedition.ID, InvoiceID: second.ID})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestPaymentAmountsExcludesOne(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	invoice := newInvoice(t, store)

	payments := []*model.Payment{
		{InvoiceID: invoice.ID, Amount: decimal.NewFromInt(10), Mode: model.PaymentCash, Date: invoice.IssueDate},
		{InvoiceID: invoice.ID, Amount: decimal.NewFromInt(20), Mode: model.PaymentCash, Date: invoice.IssueDate},
	}
	for _, payment := range payments {
		require.NoError(t, store.Billing.CreatePayment(ctx, payment))
	}

	all, err := store.Billing.PaymentAmounts(ctx, invoice.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rest, err := store.Billing.PaymentAmounts(ctx, invoice.ID, payments[0].ID)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "20.00", rest[0].StringFixed(2))
}

func TestFindMembershipsIgnoresOwnTour(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Dispatch.CreateDriver(ctx, &model.Driver{
		Code: "D1", Name: "Amine", LicenseNumber: "0000000001", LicenseCategory: model.LicenseC, Available: true,
	}))
	require.NoError(t, store.Dispatch.CreateVehicle(ctx, &model.Vehicle{
		Matricule: "100001", Type: model.VehicleCamion, MaxWeight: decimal.NewFromInt(1000), MaxVolume: decimal.NewFromInt(10), State: model.VehicleStateOperational,
	}))
	first := newExpedition(t, store, nil)
	second := newExpedition(t, store, nil)

	tour := &model.Tour{Code: "T1", Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), VehicleMatricule: "100001", DriverCode: "D1"}
	require.NoError(t, store.Dispatch.CreateTour(ctx, tour, []uint{first.ID}))

	rows, err := store.Dispatch.FindMemberships(ctx, []uint{first.ID, second.ID}, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "T1", rows[0].TourCode)

	rows, err = store.Dispatch.FindMemberships(ctx, []uint{first.ID}, "T1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, store.Dispatch.ReplaceTourMembers(ctx, "T1", []uint{second.ID}))
	ids, err := store.Dispatch.TourMemberIDs(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, []uint{second.ID}, ids)
}

func TestTransactionRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Billing.CreateInvoice(ctx, &model.Invoice{IssueDate: time.Now().UTC()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	invoices, err := store.Reports.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
	assert.NoError(t, store.Ping(ctx))
}
