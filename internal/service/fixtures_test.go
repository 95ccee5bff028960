package service

import (
	"context"
	"fmt"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/db"
	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

var (
	admin = model.Principal{AccountID: uuid.New(), Role: model.RoleAdmin}
	agent = model.Principal{AccountID: uuid.New(), Role: model.RoleLogisticsAgent}
)

func clientPrincipal(clientID uint) model.Principal {
	return model.Principal{AccountID: uuid.New(), Role: model.RoleClient, ClientID: &clientID}
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func strPtr(value string) *string {
	return &value
}

type testEnv struct {
	ctx         context.Context
	db          *gorm.DB
	store       *repository.Store
	invoices    *InvoiceService
	payments    *PaymentService
	expeditions *ExpeditionService
	tours       *TourService
	fleet       *FleetService
	reference   *ReferenceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(zerolog.Nop()))
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(database))

	store := repository.NewStore(database)
	log := zerolog.Nop()
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

func (e *testEnv) destination(t *testing.T, code string, zone model.Zone) {
	t.Helper()
	_, err := e.reference.CreateDestination(e.ctx, CreateDestinationInput{
		Principal: admin,
		Code:      code,
		City:      "City " + code,
		Zone:      zone,
	})
	require.NoError(t, err)
}

// tariff creates a tariff (and its destination) with the given rates.
func (e *testEnv) tariff(t *testing.T, code string, zone model.Zone, base, weightRate, volumeRate string) {
	t.Helper()
	e.destination(t, "D"+code, zone)
	_, err := e.reference.CreateTariff(e.ctx, CreateTariffInput{
		Principal:       admin,
		Code:            code,
		ServiceClass:    model.ServiceStandard,
		BaseRate:        dec(base),
		WeightRate:      dec(weightRate),
		VolumeRate:      dec(volumeRate),
		DestinationCode: "D" + code,
	})
	require.NoError(t, err)
}

func (e *testEnv) expedition(t *testing.T, weight, volume string, tariffCode *string) *model.Expedition {
	t.Helper()
	expedition, err := e.expeditions.CreateExpedition(e.ctx, CreateExpeditionInput{
		Principal:  agent,
		Weight:     dec(weight),
		Volume:     dec(volume),
		TariffCode: tariffCode,
	})
	require.NoError(t, err)
	return expedition
}

// pricedExpedition stores an expedition whose amount is exactly amount,
// using a flat tariff.
func (e *testEnv) pricedExpedition(t *testing.T, amount string) *model.Expedition {
	t.Helper()
	code := fmt.Sprintf("F%s", strings.ReplaceAll(amount, ".", ""))
	if _, err := e.store.Dispatch.GetTariff(e.ctx, code); err != nil {
		e.tariff(t, code, model.ZoneNorth, amount, "0", "0")
	}
	return e.expedition(t, "1", "1", &code)
}

func (e *testEnv) invoice(t *testing.T) *model.Invoice {
	t.Helper()
	invoice, err := e.invoices.CreateInvoice(e.ctx, CreateInvoiceInput{Principal: agent})
	require.NoError(t, err)
	return invoice
}

func (e *testEnv) attach(t *testing.T, expeditionID, invoiceID uint) *InvoiceStatus {
	t.Helper()
	status, err := e.invoices.AttachExpedition(e.ctx, AttachInput{
		Principal:    agent,
		ExpeditionID: expeditionID,
		InvoiceID:    invoiceID,
	})
	require.NoError(t, err)
	return status
}

func (e *testEnv) pay(t *testing.T, invoiceID uint, amount string) *PaymentResult {
	t.Helper()
	result, err := e.payments.RecordPayment(e.ctx, RecordPaymentInput{
		Principal: agent,
		InvoiceID: invoiceID,
		Amount:    dec(amount),
		Mode:      model.PaymentTransfer,
	})
	require.NoError(t, err)
	return result
}

func (e *testEnv) reloadInvoice(t *testing.T, id uint) *model.Invoice {
	t.Helper()
	invoice, err := e.store.Billing.GetInvoice(e.ctx, id)
	require.NoError(t, err)
	return invoice
}

func (e *testEnv) driver(t *testing.T, code string, category model.LicenseCategory) {
	t.Helper()
	number := fmt.Sprintf("%010d", crc32.ChecksumIEEE([]byte(code)))
	_, err := e.fleet.RegisterDriver(e.ctx, RegisterDriverInput{
		Principal:       agent,
		Code:            code,
		Name:            "Driver " + code,
		LicenseNumber:   number,
		LicenseCategory: category,
	})
	require.NoError(t, err)
}

func (e *testEnv) vehicle(t *testing.T, matricule string, vehicleType model.VehicleType, maxWeight, maxVolume string) {
	t.Helper()
	_, err := e.fleet.RegisterVehicle(e.ctx, RegisterVehicleInput{
		Principal: agent,
		Matricule: matricule,
		Type:      vehicleType,
		MaxWeight: dec(maxWeight),
		MaxVolume: dec(maxVolume),
	})
	require.NoError(t, err)
}

func requireAmount(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Equal(t, dec(expected).StringFixed(2), actual.StringFixed(2))
}
