package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/logistics-billing/internal/model"
)

func TestRegisterVehicleCapacityLimits(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		matricule string
		kind      model.VehicleType
		weight    string
		volume    string
		want      error
	}{
		{name: "moto within limit", matricule: "200001", kind: model.VehicleMoto, weight: "100", volume: "1"},
		{name: "moto over limit", matricule: "200002", kind: model.VehicleMoto, weight: "150", volume: "1", want: ErrInvalidCapacity},
		{name: "car over limit", matricule: "200003", kind: model.VehicleVoiture, weight: "500.01", volume: "3", want: ErrInvalidCapacity},
		{name: "truck has no ceiling", matricule: "200004", kind: model.VehicleCamion, weight: "25000", volume: "80"},
		{name: "sub-cent weight", matricule: "200008", kind: model.VehicleCamion, weight: "1000.005", volume: "10", want: ErrInvalidInput},
		{name: "zero volume", matricule: "200005", kind: model.VehicleCamion, weight: "1000", volume: "0", want: ErrInvalidCapacity},
		{name: "bad matricule", matricule: "20A006", kind: model.VehicleCamion, weight: "1000", volume: "10", want: ErrInvalidInput},
		{name: "unknown type", matricule: "200007", kind: "BUS", weight: "1000", volume: "10", want: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.fleet.RegisterVehicle(env.ctx, RegisterVehicleInput{
				Principal: agent,
				Matricule: tt.matricule,
				Type:      tt.kind,
				MaxWeight: dec(tt.weight),
				MaxVolume: dec(tt.volume),
			})
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterVehicleDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.vehicle(t, "300001", model.VehicleVoiture, "400", "3")

	_, err := env.fleet.RegisterVehicle(env.ctx, RegisterVehicleInput{
		Principal: agent,
		Matricule: "300001",
		Type:      model.VehicleVoiture,
		MaxWeight: dec("400"),
		MaxVolume: dec("3"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateVehicleRevalidates(t *testing.T) {
	env := newTestEnv(t)
	env.vehicle(t, "300001", model.VehicleCamion, "2000", "20")

	moto := model.VehicleMoto
	_, err := env.fleet.UpdateVehicle(env.ctx, UpdateVehicleInput{Principal: agent, Matricule: "300001", Type: &moto})
	require.ErrorIs(t, err, ErrInvalidCapacity)
	var capacityErr *CapacityError
	require.True(t, errors.As(err, &capacityErr))
	requireAmount(t, "100", capacityErr.Limit)

	weight := dec("90")
	state := "MAINTENANCE"
	vehicle, err := env.fleet.UpdateVehicle(env.ctx, UpdateVehicleInput{
		Principal: agent,
		Matricule: "300001",
		Type:      &moto,
		MaxWeight: &weight,
		State:     &state,
	})
	require.NoError(t, err)
	assert.Equal(t, model.VehicleMoto, vehicle.Type)
	assert.Equal(t, "MAINTENANCE", vehicle.State)

	_, err = env.fleet.UpdateVehicle(env.ctx, UpdateVehicleInput{Principal: agent, Matricule: "999999"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterDriver(t *testing.T) {
	env := newTestEnv(t)

	driver, err := env.fleet.RegisterDriver(env.ctx, RegisterDriverInput{
		Principal:       agent,
		Code:            "D1",
		Name:            "Amine",
		LicenseNumber:   "0123456789",
		LicenseCategory: "b",
	})
	require.NoError(t, err)
	assert.True(t, driver.Available)
	assert.Equal(t, model.LicenseB, driver.LicenseCategory)

	_, err = env.fleet.RegisterDriver(env.ctx, RegisterDriverInput{
		Principal:       agent,
		Code:            "D2",
		Name:            "Karim",
		LicenseNumber:   "0123456789",
		LicenseCategory: model.LicenseC,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.fleet.RegisterDriver(env.ctx, RegisterDriverInput{
		Principal:       agent,
		Code:            "D3",
		Name:            "Nadia",
		LicenseNumber:   "12345",
		LicenseCategory: model.LicenseC,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.fleet.RegisterDriver(env.ctx, RegisterDriverInput{
		Principal:       agent,
		Code:            "D4",
		Name:            "Sami",
		LicenseNumber:   "1111111111",
		LicenseCategory: "D",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.fleet.RegisterDriver(env.ctx, RegisterDriverInput{Principal: clientPrincipal(1), Code: "D5"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestReferenceDataRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reference.CreateDestination(env.ctx, CreateDestinationInput{Principal: agent, Code: "ALG", City: "Alger", Zone: model.ZoneNorth})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	destination, err := env.reference.CreateDestination(env.ctx, CreateDestinationInput{Principal: admin, Code: "ALG", City: "Alger", Zone: "north"})
	require.NoError(t, err)
	assert.Equal(t, model.ZoneNorth, destination.Zone)
	assert.Equal(t, model.DefaultCountry, destination.Country)

	_, err = env.reference.CreateDestination(env.ctx, CreateDestinationInput{Principal: admin, Code: "ALG", City: "Alger", Zone: model.ZoneNorth})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.reference.CreateDestination(env.ctx, CreateDestinationInput{Principal: admin, Code: "XX", City: "X", Zone: "ATLANTIS"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	tariff, err := env.reference.CreateTariff(env.ctx, CreateTariffInput{
		Principal:       admin,
		Code:            "EXP-ALG",
		ServiceClass:    model.ServiceExpress,
		BaseRate:        dec("300"),
		WeightRate:      dec("15"),
		VolumeRate:      dec("5"),
		DestinationCode: "ALG",
	})
	require.NoError(t, err)
	require.NotNil(t, tariff.Destination)
	assert.Equal(t, "Alger", tariff.Destination.City)

	_, err = env.reference.CreateTariff(env.ctx, CreateTariffInput{
		Principal:       admin,
		Code:            "NEG",
		WeightRate:      dec("-1"),
		DestinationCode: "ALG",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.reference.CreateTariff(env.ctx, CreateTariffInput{Principal: admin, Code: "LOST", DestinationCode: "NOWHERE"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTariffRejectsSubCentRates(t *testing.T) {
	env := newTestEnv(t)
	env.destination(t, "ORN", model.ZoneWest)

	for _, rates := range [][3]string{{"300.001", "15", "5"}, {"300", "0.155", "5"}, {"300", "15", "0.015"}} {
		_, err := env.reference.CreateTariff(env.ctx, CreateTariffInput{
			Principal:       admin,
			Code:            "ORN-STD",
			BaseRate:        dec(rates[0]),
			WeightRate:      dec(rates[1]),
			VolumeRate:      dec(rates[2]),
			DestinationCode: "ORN",
		})
		assert.ErrorIs(t, err, ErrInvalidInput, "rates %v", rates)
	}

	tariff, err := env.reference.CreateTariff(env.ctx, CreateTariffInput{
		Principal:       admin,
		Code:            "ORN-STD",
		BaseRate:        dec("300.50"),
		WeightRate:      dec("15.25"),
		VolumeRate:      dec("5"),
		DestinationCode: "ORN",
	})
	require.NoError(t, err)
	requireAmount(t, "300.5", tariff.BaseRate)
}
