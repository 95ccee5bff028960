package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/model"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidInput        = errors.New("invalid input")
	ErrAlreadyInvoiced     = errors.New("expedition already invoiced")
	ErrOverpaymentRejected = errors.New("payment exceeds outstanding balance")
	ErrLicenseIncompatible = errors.New("driver license incompatible with vehicle")
	ErrDriverUnavailable   = errors.New("driver unavailable")
	ErrMultiZoneConflict   = errors.New("tour spans several zones")
	ErrWeightOverload      = errors.New("tour weight exceeds vehicle capacity")
	ErrVolumeOverload      = errors.New("tour volume exceeds vehicle capacity")
	ErrInvalidCapacity     = errors.New("vehicle capacity invalid for its type")
	ErrExpeditionLocked    = errors.New("expedition can no longer be modified")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrExpeditionAssigned  = errors.New("expedition already assigned to a tour")
)

// Detailed is implemented by business rejections that carry structured
// context for the caller.
type Detailed interface {
	error
	Details() map[string]any
}

type AlreadyInvoicedError struct {
	ExpeditionID uint
	InvoiceID    uint // 0 when the conflicting link was created concurrently
}

func (e *AlreadyInvoicedError) Error() string {
	if e.InvoiceID == 0 {
		return fmt.Sprintf("%s: expedition %d", ErrAlreadyInvoiced, e.ExpeditionID)
	}
	return fmt.Sprintf("%s: expedition %d is on invoice %d", ErrAlreadyInvoiced, e.ExpeditionID, e.InvoiceID)
}

func (e *AlreadyInvoicedError) Unwrap() error { return ErrAlreadyInvoiced }

func (e *AlreadyInvoicedError) Details() map[string]any {
	details := map[string]any{"expedition_id": e.ExpeditionID}
	if e.InvoiceID != 0 {
		details["invoice_id"] = e.InvoiceID
	}
	return details
}

type OverpaymentError struct {
	InvoiceID   uint
	Amount      decimal.Decimal
	Outstanding decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("%s: amount %s, outstanding %s on invoice %d",
		ErrOverpaymentRejected, e.Amount.StringFixed(2), e.Outstanding.StringFixed(2), e.InvoiceID)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpaymentRejected }

func (e *OverpaymentError) Details() map[string]any {
	return map[string]any{
		"invoice_id":  e.InvoiceID,
		"amount":      e.Amount.StringFixed(2),
		"outstanding": e.Outstanding.StringFixed(2),
	}
}

type LicenseError struct {
	VehicleType model.VehicleType
	Required    []model.LicenseCategory
	Actual      model.LicenseCategory
}

func (e *LicenseError) Error() string {
	return fmt.Sprintf("%s: %s requires category %s, driver holds %s",
		ErrLicenseIncompatible, e.VehicleType, joinCategories(e.Required), e.Actual)
}

func (e *LicenseError) Unwrap() error { return ErrLicenseIncompatible }

func (e *LicenseError) Details() map[string]any {
	return map[string]any{
		"vehicle_type": e.VehicleType,
		"required":     e.Required,
		"actual":       e.Actual,
	}
}

type DriverUnavailableError struct {
	DriverCode string
}

func (e *DriverUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDriverUnavailable, e.DriverCode)
}

func (e *DriverUnavailableError) Unwrap() error { return ErrDriverUnavailable }

func (e *DriverUnavailableError) Details() map[string]any {
	return map[string]any{"driver_code": e.DriverCode}
}

type ZoneConflictError struct {
	Zones []model.Zone
}

func (e *ZoneConflictError) Error() string {
	names := make([]string, 0, len(e.Zones))
	for _, zone := range e.Zones {
		names = append(names, string(zone))
	}
	return fmt.Sprintf("%s: %s", ErrMultiZoneConflict, strings.Join(names, ", "))
}

func (e *ZoneConflictError) Unwrap() error { return ErrMultiZoneConflict }

func (e *ZoneConflictError) Details() map[string]any {
	return map[string]any{"zones": e.Zones}
}

type Resource string

const (
	ResourceWeight Resource = "weight"
	ResourceVolume Resource = "volume"
)

// OverloadError reports a tour load above the vehicle's capacity.
type OverloadError struct {
	Resource Resource
	Load     decimal.Decimal
	Capacity decimal.Decimal
}

func (e *OverloadError) Error() string {
	return fmt.Sprintf("%s: load %s, capacity %s", e.Unwrap(), e.Load.String(), e.Capacity.String())
}

func (e *OverloadError) Unwrap() error {
	if e.Resource == ResourceVolume {
		return ErrVolumeOverload
	}
	return ErrWeightOverload
}

func (e *OverloadError) Details() map[string]any {
	return map[string]any{
		"resource": e.Resource,
		"load":     e.Load.String(),
		"capacity": e.Capacity.String(),
	}
}

type CapacityError struct {
	VehicleType model.VehicleType
	Field       string
	Limit       decimal.Decimal
	Actual      decimal.Decimal
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %s %s is %s, limit %s",
		ErrInvalidCapacity, e.VehicleType, e.Field, e.Actual.String(), e.Limit.String())
}

func (e *CapacityError) Unwrap() error { return ErrInvalidCapacity }

func (e *CapacityError) Details() map[string]any {
	return map[string]any{
		"vehicle_type": e.VehicleType,
		"field":        e.Field,
		"limit":        e.Limit.String(),
		"actual":       e.Actual.String(),
	}
}

type ExpeditionAssignedError struct {
	ExpeditionID uint
	TourCode     string
}

func (e *ExpeditionAssignedError) Error() string {
	return fmt.Sprintf("%s: expedition %d is on tour %s", ErrExpeditionAssigned, e.ExpeditionID, e.TourCode)
}

func (e *ExpeditionAssignedError) Unwrap() error { return ErrExpeditionAssigned }

func (e *ExpeditionAssignedError) Details() map[string]any {
	return map[string]any{"expedition_id": e.ExpeditionID, "tour_code": e.TourCode}
}

func joinCategories(categories []model.LicenseCategory) string {
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, " or ")
}
