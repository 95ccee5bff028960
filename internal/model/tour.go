package model

import "time"

type Tour struct {
	Code             string       `gorm:"primaryKey;size:10" json:"code"`
	Date             time.Time    `gorm:"type:date;not null" json:"date"`
	VehicleMatricule string       `gorm:"size:6;not null;index" json:"vehicle_matricule"`
	Vehicle          *Vehicle     `gorm:"foreignKey:VehicleMatricule;references:Matricule" json:"vehicle,omitempty"`
	DriverCode       string       `gorm:"size:10;not null;index" json:"driver_code"`
	Driver           *Driver      `gorm:"foreignKey:DriverCode;references:Code" json:"driver,omitempty"`
	Expeditions      []Expedition `gorm:"-" json:"expeditions,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

func (Tour) TableName() string { return "tours" }

// TourExpedition is one membership row. An expedition rides in at most one tour.
type TourExpedition struct {
	TourCode     string `gorm:"primaryKey;size:10"`
	ExpeditionID uint   `gorm:"primaryKey;uniqueIndex:uq_tour_expeditions_expedition_id"`
}

func (TourExpedition) TableName() string { return "tour_expeditions" }
