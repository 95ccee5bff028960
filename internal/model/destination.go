package model

import "github.com/shopspring/decimal"

type Zone string

const (
	ZoneNorth  Zone = "NORTH"
	ZoneSouth  Zone = "SOUTH"
	ZoneEast   Zone = "EAST"
	ZoneWest   Zone = "WEST"
	ZoneCentre Zone = "CENTRE"
)

func (z Zone) Valid() bool {
	switch z {
	case ZoneNorth, ZoneSouth, ZoneEast, ZoneWest, ZoneCentre:
		return true
	}
	return false
}

type ServiceClass string

const (
	ServiceStandard      ServiceClass = "STANDARD"
	ServiceExpress       ServiceClass = "EXPRESS"
	ServiceInternational ServiceClass = "INTERNATIONAL"
)

func (s ServiceClass) Valid() bool {
	switch s {
	case ServiceStandard, ServiceExpress, ServiceInternational:
		return true
	}
	return false
}

const DefaultCountry = "Algérie"

// Destination is immutable reference data.
type Destination struct {
	Code    string `gorm:"primaryKey;size:10" json:"code"`
	City    string `gorm:"size:100;not null" json:"city"`
	Country string `gorm:"size:100;not null" json:"country"`
	Zone    Zone   `gorm:"size:10;not null;index" json:"zone"`
}

func (Destination) TableName() string { return "destinations" }

// Tariff is a priced service class bound to one destination.
type Tariff struct {
	Code            string          `gorm:"primaryKey;size:10" json:"code"`
	ServiceClass    ServiceClass    `gorm:"size:20;not null" json:"service_class"`
	BaseRate        decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"base_rate"`
	WeightRate      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"weight_rate"`
	VolumeRate      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"volume_rate"`
	DestinationCode string          `gorm:"size:10;not null;index" json:"destination_code"`
	Destination     *Destination    `gorm:"foreignKey:DestinationCode;references:Code" json:"destination,omitempty"`
}

func (Tariff) TableName() string { return "tariffs" }
