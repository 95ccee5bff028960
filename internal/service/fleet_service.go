package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

type FleetService struct {
	store *repository.Store
	log   zerolog.Logger
}

func NewFleetService(store *repository.Store, log zerolog.Logger) *FleetService {
	return &FleetService{
		store: store,
		log:   log.With().Str("component", "fleet").Logger(),
	}
}

type RegisterVehicleInput struct {
	Principal model.Principal
	Matricule string
	Type      model.VehicleType
	MaxWeight decimal.Decimal
	MaxVolume decimal.Decimal
	State     string
}

func (s *FleetService) RegisterVehicle(ctx context.Context, input RegisterVehicleInput) (*model.Vehicle, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}

	vehicle := &model.Vehicle{
		Matricule: strings.TrimSpace(input.Matricule),
		Type:      input.Type,
		MaxWeight: input.MaxWeight,
		MaxVolume: input.MaxVolume,
		State:     strings.TrimSpace(input.State),
	}
	if vehicle.State == "" {
		vehicle.State = model.VehicleStateOperational
	}
	if !isDigits(vehicle.Matricule, 6) {
		return nil, invalidf("matricule must be exactly 6 digits")
	}
	if err := validateVehicle(vehicle); err != nil {
		logRejection(s.log, err, "register vehicle")
		return nil, err
	}

	if err := s.store.Dispatch.CreateVehicle(ctx, vehicle); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidf("vehicle %s already registered", vehicle.Matricule)
		}
		return nil, err
	}
	s.log.Info().Str("matricule", vehicle.Matricule).Str("type", string(vehicle.Type)).Msg("vehicle registered")
	return vehicle, nil
}

type UpdateVehicleInput struct {
	Principal model.Principal
	Matricule string
	Type      *model.VehicleType
	MaxWeight *decimal.Decimal
	MaxVolume *decimal.Decimal
	State     *string
}

func (s *FleetService) UpdateVehicle(ctx context.Context, input UpdateVehicleInput) (*model.Vehicle, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}

	var updated *model.Vehicle
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		vehicle, err := tx.Dispatch.LockVehicle(ctx, input.Matricule)
		if err != nil {
			return notFound(err, "vehicle")
		}
		if input.Type != nil {
			vehicle.Type = *input.Type
		}
		if input.MaxWeight != nil {
			vehicle.MaxWeight = *input.MaxWeight
		}
		if input.MaxVolume != nil {
			vehicle.MaxVolume = *input.MaxVolume
		}
		if input.State != nil && strings.TrimSpace(*input.State) != "" {
			vehicle.State = strings.TrimSpace(*input.State)
		}
		if err := validateVehicle(vehicle); err != nil {
			return err
		}
		if err := tx.Dispatch.UpdateVehicle(ctx, vehicle); err != nil {
			return err
		}
		updated = vehicle
		return nil
	})
	if err != nil {
		logRejection(s.log, err, "update vehicle")
		return nil, err
	}
	return updated, nil
}

type RegisterDriverInput struct {
	Principal       model.Principal
	Code            string
	Name            string
	LicenseNumber   string
	LicenseCategory model.LicenseCategory
	AccountID       *uuid.UUID
}

// RegisterDriver stores a new driver, available by default.
func (s *FleetService) RegisterDriver(ctx context.Context, input RegisterDriverInput) (*model.Driver, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}

	driver := &model.Driver{
		Code:            strings.TrimSpace(input.Code),
		Name:            strings.TrimSpace(input.Name),
		LicenseNumber:   strings.TrimSpace(input.LicenseNumber),
		LicenseCategory: model.LicenseCategory(strings.ToUpper(string(input.LicenseCategory))),
		Available:       true,
		AccountID:       input.AccountID,
	}
	switch {
	case driver.Code == "" || len(driver.Code) > 10:
		return nil, invalidf("code must be 1 to 10 characters")
	case driver.Name == "":
		return nil, invalidf("name is required")
	case !isDigits(driver.LicenseNumber, 10):
		return nil, invalidf("license number must be exactly 10 digits")
	case !driver.LicenseCategory.Valid():
		return nil, invalidf("license category must be A, B or C")
	}

	if err := s.store.Dispatch.CreateDriver(ctx, driver); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidf("driver code or license number already registered")
		}
		return nil, err
	}
	s.log.Info().Str("driver_code", driver.Code).Msg("driver registered")
	return driver, nil
}

type DriverInput struct {
	Principal  model.Principal
	DriverCode string
}

func (s *FleetService) GetDriver(ctx context.Context, input DriverInput) (*model.Driver, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	driver, err := s.store.Dispatch.GetDriver(ctx, input.DriverCode)
	if err != nil {
		return nil, notFound(err, "driver")
	}
	return driver, nil
}

// validateVehicle enforces positive capacities and the per-type weight
// ceiling.
func validateVehicle(vehicle *model.Vehicle) error {
	if !vehicle.Type.Valid() {
		return invalidf("vehicle type must be MOTO, VOITURE or CAMION")
	}
	if !vehicle.MaxWeight.IsPositive() {
		return &CapacityError{VehicleType: vehicle.Type, Field: "max_weight", Limit: decimal.Zero, Actual: vehicle.MaxWeight}
	}
	if !vehicle.MaxVolume.IsPositive() {
		return &CapacityError{VehicleType: vehicle.Type, Field: "max_volume", Limit: decimal.Zero, Actual: vehicle.MaxVolume}
	}
	if !hasCents(vehicle.MaxWeight) || !hasCents(vehicle.MaxVolume) {
		return invalidf("capacities allow at most two decimal places")
	}
	if limit, ok := vehicle.Type.MaxWeight(); ok && vehicle.MaxWeight.GreaterThan(limit) {
		return &CapacityError{VehicleType: vehicle.Type, Field: "max_weight", Limit: limit, Actual: vehicle.MaxWeight}
	}
	return nil
}

func isDigits(value string, length int) bool {
	if len(value) != length {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
