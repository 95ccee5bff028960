package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

// TourService admits driver+vehicle+cargo combinations. Checks run in a
// fixed order and the first failure wins: license, driver availability
// (first creation only), zone homogeneity. Capacity is only checked by
// VerifyTourCapacity.
type TourService struct {
	store *repository.Store
	log   zerolog.Logger
}

func NewTourService(store *repository.Store, log zerolog.Logger) *TourService {
	return &TourService{
		store: store,
		log:   log.With().Str("component", "tours").Logger(),
	}
}

type ValidateTourInput struct {
	Principal        model.Principal
	DriverCode       string
	VehicleMatricule string
	ExpeditionIDs    []uint
}

// ValidateTour runs the creation checks without writing anything.
func (s *TourService) ValidateTour(ctx context.Context, input ValidateTourInput) error {
	if !input.Principal.CanDispatch() {
		return ErrPermissionDenied
	}
	if err := validateMemberIDs(input.ExpeditionIDs); err != nil {
		return err
	}

	driver, vehicle, err := s.loadCrew(ctx, s.store, input.DriverCode, input.VehicleMatricule)
	if err != nil {
		return err
	}
	members, err := loadMembers(ctx, s.store, input.ExpeditionIDs)
	if err != nil {
		return err
	}

	if err := checkLicense(vehicle, driver); err != nil {
		return err
	}
	if err := checkDriverAvailable(driver); err != nil {
		return err
	}
	if err := checkZones(members); err != nil {
		return err
	}
	return checkUnassigned(ctx, s.store, input.ExpeditionIDs, "")
}

type CreateTourInput struct {
	Principal        model.Principal
	Code             string
	Date             time.Time
	DriverCode       string
	VehicleMatricule string
	ExpeditionIDs    []uint
}

// CreateTour persists the tour with its members and marks the driver busy,
// all in one transaction. The availability flip is a guarded update, so of
// two concurrent creations for the same driver only one succeeds.
func (s *TourService) CreateTour(ctx context.Context, input CreateTourInput) (*model.Tour, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	code := strings.TrimSpace(input.Code)
	if code == "" || len(code) > 10 {
		return nil, invalidf("code must be 1 to 10 characters")
	}
	if err := validateMemberIDs(input.ExpeditionIDs); err != nil {
		return nil, err
	}
	date := dateOnly(input.Date)
	if date.IsZero() {
		date = today()
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		driver, vehicle, err := s.loadCrew(ctx, tx, input.DriverCode, input.VehicleMatricule)
		if err != nil {
			return err
		}
		if err := checkLicense(vehicle, driver); err != nil {
			return err
		}
		if err := checkDriverAvailable(driver); err != nil {
			return err
		}
		members, err := loadMembers(ctx, tx, input.ExpeditionIDs)
		if err != nil {
			return err
		}
		if err := checkZones(members); err != nil {
			return err
		}
		if err := checkUnassigned(ctx, tx, input.ExpeditionIDs, ""); err != nil {
			return err
		}

		tour := &model.Tour{
			Code:             code,
			Date:             date,
			VehicleMatricule: vehicle.Matricule,
			DriverCode:       driver.Code,
		}
		if err := tx.Dispatch.CreateTour(ctx, tour, input.ExpeditionIDs); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return invalidf("tour %s or one of its expeditions is already registered", code)
			}
			return err
		}

		claimed, err := tx.Dispatch.ClaimDriver(ctx, driver.Code)
		if err != nil {
			return err
		}
		if !claimed {
			return &DriverUnavailableError{DriverCode: driver.Code}
		}
		// TODO: decide when a driver stops being busy. Nothing models tour
		// completion, so a claimed driver stays unavailable.
		return nil
	})
	if err != nil {
		logRejection(s.log, err, "create tour")
		return nil, err
	}

	s.log.Info().
		Str("tour_code", code).
		Str("driver_code", input.DriverCode).
		Int("expeditions", len(input.ExpeditionIDs)).
		Msg("tour created")
	return s.GetTour(ctx, TourInput{Principal: input.Principal, TourCode: code})
}

type UpdateTourInput struct {
	Principal        model.Principal
	TourCode         string
	Date             *time.Time
	VehicleMatricule *string
	// ExpeditionIDs replaces the membership when non-nil.
	ExpeditionIDs []uint
}

// UpdateTour re-runs license and zone checks. Availability is not checked
// again: the driver is busy because of this very tour.
func (s *TourService) UpdateTour(ctx context.Context, input UpdateTourInput) (*model.Tour, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	if input.ExpeditionIDs != nil {
		if err := validateMemberIDs(input.ExpeditionIDs); err != nil {
			return nil, err
		}
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		tour, err := tx.Dispatch.LockTour(ctx, input.TourCode)
		if err != nil {
			return notFound(err, "tour")
		}
		if input.Date != nil {
			if input.Date.IsZero() {
				return invalidf("date is required")
			}
			tour.Date = dateOnly(*input.Date)
		}
		if input.VehicleMatricule != nil {
			tour.VehicleMatricule = *input.VehicleMatricule
		}

		driver, vehicle, err := s.loadCrew(ctx, tx, tour.DriverCode, tour.VehicleMatricule)
		if err != nil {
			return err
		}
		if err := checkLicense(vehicle, driver); err != nil {
			return err
		}

		memberIDs := input.ExpeditionIDs
		if memberIDs == nil {
			if memberIDs, err = tx.Dispatch.TourMemberIDs(ctx, tour.Code); err != nil {
				return err
			}
		}
		members, err := loadMembers(ctx, tx, memberIDs)
		if err != nil {
			return err
		}
		if err := checkZones(members); err != nil {
			return err
		}

		if input.ExpeditionIDs != nil {
			if err := checkUnassigned(ctx, tx, memberIDs, tour.Code); err != nil {
				return err
			}
			if err := tx.Dispatch.ReplaceTourMembers(ctx, tour.Code, memberIDs); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return invalidf("an expedition of tour %s is already assigned", tour.Code)
				}
				return err
			}
		}
		return tx.Dispatch.UpdateTour(ctx, tour)
	})
	if err != nil {
		logRejection(s.log, err, "update tour")
		return nil, err
	}

	return s.GetTour(ctx, TourInput{Principal: input.Principal, TourCode: input.TourCode})
}

type TourInput struct {
	Principal model.Principal
	TourCode  string
}

func (s *TourService) GetTour(ctx context.Context, input TourInput) (*model.Tour, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	tour, err := s.store.Dispatch.GetTour(ctx, input.TourCode)
	if err != nil {
		return nil, notFound(err, "tour")
	}
	ids, err := s.store.Dispatch.TourMemberIDs(ctx, tour.Code)
	if err != nil {
		return nil, err
	}
	tour.Expeditions, err = s.store.Dispatch.ListExpeditions(ctx, ids)
	if err != nil {
		return nil, err
	}
	return tour, nil
}

// VerifyTourCapacity sums the members' weight and volume against the
// vehicle. The load is returned even when the check fails.
func (s *TourService) VerifyTourCapacity(ctx context.Context, input TourInput) (*Load, error) {
	tour, err := s.GetTour(ctx, input)
	if err != nil {
		return nil, err
	}
	if tour.Vehicle == nil {
		return nil, notFound(gorm.ErrRecordNotFound, "vehicle")
	}

	load := tourLoad(tour.Vehicle, tour.Expeditions)
	if err := checkCapacity(load); err != nil {
		logRejection(s.log, err, "verify tour capacity")
		return &load, err
	}
	return &load, nil
}

func (s *TourService) loadCrew(ctx context.Context, store *repository.Store, driverCode, matricule string) (*model.Driver, *model.Vehicle, error) {
	if strings.TrimSpace(driverCode) == "" || strings.TrimSpace(matricule) == "" {
		return nil, nil, invalidf("driver_code and vehicle_matricule are required")
	}
	driver, err := store.Dispatch.GetDriver(ctx, driverCode)
	if err != nil {
		return nil, nil, notFound(err, "driver")
	}
	vehicle, err := store.Dispatch.GetVehicle(ctx, matricule)
	if err != nil {
		return nil, nil, notFound(err, "vehicle")
	}
	return driver, vehicle, nil
}

func loadMembers(ctx context.Context, store *repository.Store, ids []uint) ([]model.Expedition, error) {
	members, err := store.Dispatch.ListExpeditions(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(members) != len(ids) {
		return nil, notFound(gorm.ErrRecordNotFound, "expedition")
	}
	return members, nil
}

// checkUnassigned rejects expeditions already riding in another tour.
func checkUnassigned(ctx context.Context, store *repository.Store, ids []uint, tourCode string) error {
	rows, err := store.Dispatch.FindMemberships(ctx, ids, tourCode)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return &ExpeditionAssignedError{ExpeditionID: rows[0].ExpeditionID, TourCode: rows[0].TourCode}
	}
	return nil
}

func validateMemberIDs(ids []uint) error {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return invalidf("expedition id must be positive")
		}
		if _, ok := seen[id]; ok {
			return invalidf("expedition %d listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
