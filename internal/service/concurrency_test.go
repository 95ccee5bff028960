package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/db"
	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

// newPostgresEnv runs against a real server when TEST_DATABASE_URL is set.
// Row locks are only meaningful there.
func newPostgresEnv(t *testing.T) *testEnv {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	database, err := gorm.Open(postgres.Open(dsn), db.GormConfig(zerolog.Nop()))
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(database))
	require.NoError(t, database.Exec(`
		TRUNCATE tour_expeditions, tours, payments, expedition_invoices, invoices,
			expeditions, tariffs, destinations, drivers, vehicles
		RESTART IDENTITY CASCADE
	`).Error)

	log := zerolog.Nop()
	store := repository.NewStore(database)
	return &testEnv{
		ctx:         context.Background(),
		db:          database,
		store:       store,
		invoices:    NewInvoiceService(store, nil, log),
		payments:    NewPaymentService(store, nil, log),
		expeditions: NewExpeditionService(store, nil, log),
		tours:       NewTourService(store, log),
		fleet:       NewFleetService(store, log),
		reference:   NewReferenceService(store, log),
	}
}

func TestConcurrentAttachLinksOnce(t *testing.T) {
	env := newPostgresEnv(t)
	expedition := env.pricedExpedition(t, "100")
	const workers = 8
	invoices := make([]uint, workers)
	for i := range invoices {
		invoices[i] = env.invoice(t).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.invoices.AttachExpedition(env.ctx, AttachInput{Principal: agent, ExpeditionID: expedition.ID, InvoiceID: invoices[i]})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrAlreadyInvoiced), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	env := newPostgresEnv(t)
	invoice := billedInvoice(t, env)
	const workers = 10

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.payments.RecordPayment(env.ctx, RecordPaymentInput{
				Principal: agent, InvoiceID: invoice.ID, Amount: dec("200"), Mode: model.PaymentCash,
			})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ErrOverpaymentRejected)
	}
	// 1190 leaves room for five payments of 200.
	assert.Equal(t, 5, accepted)
	assert.False(t, env.reloadInvoice(t, invoice.ID).Paid)
}

func TestConcurrentTourCreationClaimsDriverOnce(t *testing.T) {
	env := newPostgresEnv(t)
	env.driver(t, "SOLO", model.LicenseC)
	env.vehicle(t, "500001", model.VehicleCamion, "5000", "40")
	const workers = 6

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.tours.CreateTour(env.ctx, CreateTourInput{
				Principal:        agent,
				Code:             "T" + string(rune('A'+i)),
				DriverCode:       "SOLO",
				VehicleMatricule: "500001",
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrDriverUnavailable)
	}
	assert.Equal(t, 1, created)
}

func TestDeleteInvoiceAndPaymentsDoNotDeadlock(t *testing.T) {
	env := newPostgresEnv(t)
	invoice := billedInvoice(t, env)
	var paymentIDs []uint
	for i := 0; i < 4; i++ {
		paymentIDs = append(paymentIDs, env.pay(t, invoice.ID, "100").Payment.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(paymentIDs)+1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = env.invoices.DeleteInvoice(env.ctx, InvoiceInput{Principal: agent, InvoiceID: invoice.ID})
	}()
	for i, id := range paymentIDs {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i+1] = env.payments.DeletePayment(env.ctx, DeletePaymentInput{Principal: agent, PaymentID: id})
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrNotFound)
		}
	}
	_, err := env.store.Billing.GetInvoice(env.ctx, invoice.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
