package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpeditionStatus string

const (
	ExpeditionPending         ExpeditionStatus = "PENDING"
	ExpeditionPreparing       ExpeditionStatus = "PREPARING"
	ExpeditionInTransit       ExpeditionStatus = "IN_TRANSIT"
	ExpeditionAtSortingCenter ExpeditionStatus = "AT_SORTING_CENTER"
	ExpeditionOutForDelivery  ExpeditionStatus = "OUT_FOR_DELIVERY"
	ExpeditionDelivered       ExpeditionStatus = "DELIVERED"
	ExpeditionFailed          ExpeditionStatus = "FAILED"
	ExpeditionReturned        ExpeditionStatus = "RETURNED"
)

var expeditionTransitions = map[ExpeditionStatus][]ExpeditionStatus{
	ExpeditionPending:         {ExpeditionPreparing, ExpeditionInTransit},
	ExpeditionPreparing:       {ExpeditionInTransit},
	ExpeditionInTransit:       {ExpeditionAtSortingCenter, ExpeditionOutForDelivery},
	ExpeditionAtSortingCenter: {ExpeditionOutForDelivery},
	ExpeditionOutForDelivery:  {ExpeditionDelivered, ExpeditionFailed},
	ExpeditionFailed:          {ExpeditionReturned, ExpeditionOutForDelivery},
}

func (s ExpeditionStatus) Valid() bool {
	switch s {
	case ExpeditionPending, ExpeditionPreparing, ExpeditionInTransit, ExpeditionAtSortingCenter,
		ExpeditionOutForDelivery, ExpeditionDelivered, ExpeditionFailed, ExpeditionReturned:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ExpeditionStatus) CanTransitionTo(next ExpeditionStatus) bool {
	for _, candidate := range expeditionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Editable reports whether weight, volume and tariff may still change.
func (s ExpeditionStatus) Editable() bool {
	return s == ExpeditionPending || s == ExpeditionPreparing
}

type Expedition struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Weight          decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"weight"`
	Volume          decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"volume"`
	TariffCode      *string          `gorm:"size:10;index" json:"tariff_code,omitempty"`
	Tariff          *Tariff          `gorm:"foreignKey:TariffCode;references:Code;constraint:OnDelete:SET NULL" json:"tariff,omitempty"`
	EstimatedAmount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"estimated_amount,omitempty"`
	Status          ExpeditionStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	ClientID        *uint            `gorm:"index" json:"client_id,omitempty"`
	Description     string           `gorm:"type:text" json:"description,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

func (Expedition) TableName() string { return "expeditions" }

// AmountOrZero treats a missing estimate as zero.
func (e Expedition) AmountOrZero() decimal.Decimal {
	if e.EstimatedAmount == nil {
		return decimal.Zero
	}
	return *e.EstimatedAmount
}
