package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
)

type DispatchRepository struct {
	db *gorm.DB
}

func NewDispatchRepository(db *gorm.DB) *DispatchRepository {
	return &DispatchRepository{db: db}
}

func (r *DispatchRepository) CreateDestination(ctx context.Context, destination *model.Destination) error {
	return r.db.WithContext(ctx).Create(destination).Error
}

func (r *DispatchRepository) GetDestination(ctx context.Context, code string) (*model.Destination, error) {
	var destination model.Destination
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&destination).Error; err != nil {
		return nil, err
	}
	return &destination, nil
}

func (r *DispatchRepository) CreateTariff(ctx context.Context, tariff *model.Tariff) error {
	return r.db.WithContext(ctx).Omit("Destination").Create(tariff).Error
}

func (r *DispatchRepository) GetTariff(ctx context.Context, code string) (*model.Tariff, error) {
	var tariff model.Tariff
	err := r.db.WithContext(ctx).
		Preload("Destination").
		Where("code = ?", code).
		Take(&tariff).Error
	if err != nil {
		return nil, err
	}
	return &tariff, nil
}

func (r *DispatchRepository) CreateExpedition(ctx context.Context, expedition *model.Expedition) error {
	return r.db.WithContext(ctx).Omit("Tariff").Create(expedition).Error
}

func (r *DispatchRepository) GetExpedition(ctx context.Context, id uint) (*model.Expedition, error) {
	var expedition model.Expedition
	err := r.db.WithContext(ctx).
		Preload("Tariff.Destination").
		First(&expedition, id).Error
	if err != nil {
		return nil, err
	}
	return &expedition, nil
}

func (r *DispatchRepository) LockExpedition(ctx context.Context, id uint) (*model.Expedition, error) {
	var expedition model.Expedition
	if err := r.db.WithContext(ctx).Clauses(forUpdate).First(&expedition, id).Error; err != nil {
		return nil, err
	}
	return &expedition, nil
}

func (r *DispatchRepository) UpdateExpedition(ctx context.Context, expedition *model.Expedition) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE expeditions
		SET weight = ?, volume = ?, tariff_code = ?, estimated_amount = ?, status = ?, description = ?
		WHERE id = ?
	`,
		expedition.Weight,
		expedition.Volume,
		expedition.TariffCode,
		expedition.EstimatedAmount,
		expedition.Status,
		expedition.Description,
		expedition.ID,
	).Error
}

// ListExpeditions loads the given expeditions with their tariff and
// destination. Missing ids are simply absent from the result.
func (r *DispatchRepository) ListExpeditions(ctx context.Context, ids []uint) ([]model.Expedition, error) {
	if len(ids) == 0 {
		return []model.Expedition{}, nil
	}
	var expeditions []model.Expedition
	err := r.db.WithContext(ctx).
		Preload("Tariff.Destination").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&expeditions).Error
	if err != nil {
		return nil, err
	}
	return expeditions, nil
}

func (r *DispatchRepository) CreateDriver(ctx context.Context, driver *model.Driver) error {
	return r.db.WithContext(ctx).Create(driver).Error
}

func (r *DispatchRepository) GetDriver(ctx context.Context, code string) (*model.Driver, error) {
	var driver model.Driver
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

// ClaimDriver flips availability from true to false in a single guarded
// statement. It reports false when the driver was already busy.
func (r *DispatchRepository) ClaimDriver(ctx context.Context, code string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE drivers
		SET available = ?
		WHERE code = ? AND available = ?
	`, false, code, true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *DispatchRepository) CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *DispatchRepository) GetVehicle(ctx context.Context, matricule string) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := r.db.WithContext(ctx).Where("matricule = ?", matricule).Take(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *DispatchRepository) LockVehicle(ctx context.Context, matricule string) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("matricule = ?", matricule).
		Take(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *DispatchRepository) UpdateVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE vehicles
		SET type = ?, max_weight = ?, max_volume = ?, state = ?
		WHERE matricule = ?
	`, vehicle.Type, vehicle.MaxWeight, vehicle.MaxVolume, vehicle.State, vehicle.Matricule).Error
}

// CreateTour inserts the tour row and its membership rows.
func (r *DispatchRepository) CreateTour(ctx context.Context, tour *model.Tour, expeditionIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Vehicle", "Driver").Create(tour).Error; err != nil {
		return err
	}
	return r.insertMembers(db, tour.Code, expeditionIDs)
}

func (r *DispatchRepository) GetTour(ctx context.Context, code string) (*model.Tour, error) {
	var tour model.Tour
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Preload("Driver").
		Where("code = ?", code).
		Take(&tour).Error
	if err != nil {
		return nil, err
	}
	return &tour, nil
}

func (r *DispatchRepository) LockTour(ctx context.Context, code string) (*model.Tour, error) {
	var tour model.Tour
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("code = ?", code).
		Take(&tour).Error
	if err != nil {
		return nil, err
	}
	return &tour, nil
}

func (r *DispatchRepository) UpdateTour(ctx context.Context, tour *model.Tour) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE tours
		SET date = ?, vehicle_matricule = ?
		WHERE code = ?
	`, tour.Date, tour.VehicleMatricule, tour.Code).Error
}

// ReplaceTourMembers swaps the whole membership set of a tour.
func (r *DispatchRepository) ReplaceTourMembers(ctx context.Context, code string, expeditionIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec(`DELETE FROM tour_expeditions WHERE tour_code = ?`, code).Error; err != nil {
		return err
	}
	return r.insertMembers(db, code, expeditionIDs)
}

func (r *DispatchRepository) insertMembers(db *gorm.DB, code string, expeditionIDs []uint) error {
	for _, id := range expeditionIDs {
		if err := db.Exec(`
			INSERT INTO tour_expeditions (tour_code, expedition_id)
			VALUES (?, ?)
		`, code, id).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *DispatchRepository) TourMemberIDs(ctx context.Context, code string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Raw(`
		SELECT expedition_id
		FROM tour_expeditions
		WHERE tour_code = ?
		ORDER BY expedition_id ASC
	`, code).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FindMemberships returns the existing membership rows for the given
// expeditions, ignoring rows that belong to excludeTour.
func (r *DispatchRepository) FindMemberships(ctx context.Context, expeditionIDs []uint, excludeTour string) ([]model.TourExpedition, error) {
	if len(expeditionIDs) == 0 {
		return []model.TourExpedition{}, nil
	}
	var rows []model.TourExpedition
	err := r.db.WithContext(ctx).
		Where("expedition_id IN ? AND tour_code <> ?", expeditionIDs, excludeTour).
		Order("expedition_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
