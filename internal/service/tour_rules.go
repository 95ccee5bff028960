package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/model"
)

func checkLicense(vehicle *model.Vehicle, driver *model.Driver) error {
	accepted := vehicle.Type.AcceptedLicenses()
	for _, category := range accepted {
		if driver.LicenseCategory == category {
			return nil
		}
	}
	return &LicenseError{
		VehicleType: vehicle.Type,
		Required:    accepted,
		Actual:      driver.LicenseCategory,
	}
}

func checkDriverAvailable(driver *model.Driver) error {
	if !driver.Available {
		return &DriverUnavailableError{DriverCode: driver.Code}
	}
	return nil
}

// checkZones requires every priced member to ship to the same zone.
// Expeditions without a tariff do not take part.
func checkZones(expeditions []model.Expedition) error {
	seen := make(map[model.Zone]struct{})
	for _, expedition := range expeditions {
		if expedition.Tariff == nil || expedition.Tariff.Destination == nil {
			continue
		}
		seen[expedition.Tariff.Destination.Zone] = struct{}{}
	}
	if len(seen) <= 1 {
		return nil
	}

	zones := make([]model.Zone, 0, len(seen))
	for zone := range seen {
		zones = append(zones, zone)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i] < zones[j] })
	return &ZoneConflictError{Zones: zones}
}

type Load struct {
	Weight    decimal.Decimal `json:"weight"`
	Volume    decimal.Decimal `json:"volume"`
	MaxWeight decimal.Decimal `json:"max_weight"`
	MaxVolume decimal.Decimal `json:"max_volume"`
}

func tourLoad(vehicle *model.Vehicle, expeditions []model.Expedition) Load {
	load := Load{
		Weight:    decimal.Zero,
		Volume:    decimal.Zero,
		MaxWeight: vehicle.MaxWeight,
		MaxVolume: vehicle.MaxVolume,
	}
	for _, expedition := range expeditions {
		load.Weight = load.Weight.Add(expedition.Weight)
		load.Volume = load.Volume.Add(expedition.Volume)
	}
	return load
}

// checkCapacity reports weight before volume.
func checkCapacity(load Load) error {
	if load.Weight.GreaterThan(load.MaxWeight) {
		return &OverloadError{Resource: ResourceWeight, Load: load.Weight, Capacity: load.MaxWeight}
	}
	if load.Volume.GreaterThan(load.MaxVolume) {
		return &OverloadError{Resource: ResourceVolume, Load: load.Volume, Capacity: load.MaxVolume}
	}
	return nil
}
