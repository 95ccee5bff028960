package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LicenseCategory string

const (
	LicenseA LicenseCategory = "A" // two-wheeler
	LicenseB LicenseCategory = "B" // car
	LicenseC LicenseCategory = "C" // truck
)

func (c LicenseCategory) Valid() bool {
	return c == LicenseA || c == LicenseB || c == LicenseC
}

type VehicleType string

const (
	VehicleMoto    VehicleType = "MOTO"
	VehicleVoiture VehicleType = "VOITURE"
	VehicleCamion  VehicleType = "CAMION"
)

func (t VehicleType) Valid() bool {
	return t == VehicleMoto || t == VehicleVoiture || t == VehicleCamion
}

// AcceptedLicenses lists the categories allowed to drive t.
func (t VehicleType) AcceptedLicenses() []LicenseCategory {
	switch t {
	case VehicleCamion:
		return []LicenseCategory{LicenseC}
	case VehicleVoiture:
		return []LicenseCategory{LicenseB, LicenseC}
	case VehicleMoto:
		return []LicenseCategory{LicenseA}
	}
	return nil
}

// MaxWeight returns the type's weight ceiling in kg; ok is false when the
// type has none.
func (t VehicleType) MaxWeight() (limit decimal.Decimal, ok bool) {
	switch t {
	case VehicleMoto:
		return decimal.NewFromInt(100), true
	case VehicleVoiture:
		return decimal.NewFromInt(500), true
	}
	return decimal.Zero, false
}

const VehicleStateOperational = "OPERATIONAL"

type Driver struct {
	Code            string          `gorm:"primaryKey;size:10" json:"code"`
	Name            string          `gorm:"size:100;not null" json:"name"`
	LicenseNumber   string          `gorm:"size:10;not null;uniqueIndex" json:"license_number"`
	LicenseCategory LicenseCategory `gorm:"size:1;not null" json:"license_category"`
	Available       bool            `gorm:"not null;default:true" json:"available"`
	AccountID       *uuid.UUID      `gorm:"type:uuid;index" json:"account_id,omitempty"`
}

func (Driver) TableName() string { return "drivers" }

type Vehicle struct {
	Matricule string          `gorm:"primaryKey;size:6" json:"matricule"`
	Type      VehicleType     `gorm:"size:10;not null" json:"type"`
	MaxWeight decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"max_weight"`
	MaxVolume decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"max_volume"`
	State     string          `gorm:"size:50;not null;default:'OPERATIONAL'" json:"state"`
}

func (Vehicle) TableName() string { return "vehicles" }
