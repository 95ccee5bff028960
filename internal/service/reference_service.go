package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

type ReferenceService struct {
	store *repository.Store
	log   zerolog.Logger
}

func NewReferenceService(store *repository.Store, log zerolog.Logger) *ReferenceService {
	return &ReferenceService{store: store, log: log.With().Str("component", "reference").Logger()}
}

type CreateDestinationInput struct {
	Principal model.Principal
	Code      string
	City      string
	Country   string
	Zone      model.Zone
}

func (s *ReferenceService) CreateDestination(ctx context.Context, input CreateDestinationInput) (*model.Destination, error) {
	if !input.Principal.CanManageReference() {
		return nil, ErrPermissionDenied
	}

	destination := &model.Destination{
		Code:    strings.TrimSpace(input.Code),
		City:    strings.TrimSpace(input.City),
		Country: strings.TrimSpace(input.Country),
		Zone:    model.Zone(strings.ToUpper(string(input.Zone))),
	}
	if destination.Country == "" {
		destination.Country = model.DefaultCountry
	}
	switch {
	case destination.Code == "" || len(destination.Code) > 10:
		return nil, invalidf("code must be 1 to 10 characters")
	case destination.City == "":
		return nil, invalidf("city is required")
	case !destination.Zone.Valid():
		return nil, invalidf("unknown zone %q", input.Zone)
	}

	if err := s.store.Dispatch.CreateDestination(ctx, destination); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidf("destination %s already exists", destination.Code)
		}
		return nil, err
	}
	return destination, nil
}

type CreateTariffInput struct {
	Principal       model.Principal
	Code            string
	ServiceClass    model.ServiceClass
	BaseRate        decimal.Decimal
	WeightRate      decimal.Decimal
	VolumeRate      decimal.Decimal
	DestinationCode string
}

func (s *ReferenceService) CreateTariff(ctx context.Context, input CreateTariffInput) (*model.Tariff, error) {
	if !input.Principal.CanManageReference() {
		return nil, ErrPermissionDenied
	}

	tariff := &model.Tariff{
		Code:            strings.TrimSpace(input.Code),
		ServiceClass:    input.ServiceClass,
		BaseRate:        input.BaseRate,
		WeightRate:      input.WeightRate,
		VolumeRate:      input.VolumeRate,
		DestinationCode: strings.TrimSpace(input.DestinationCode),
	}
	if tariff.ServiceClass == "" {
		tariff.ServiceClass = model.ServiceStandard
	}
	switch {
	case tariff.Code == "" || len(tariff.Code) > 10:
		return nil, invalidf("code must be 1 to 10 characters")
	case !tariff.ServiceClass.Valid():
		return nil, invalidf("unknown service class %q", input.ServiceClass)
	case tariff.BaseRate.IsNegative(), tariff.WeightRate.IsNegative(), tariff.VolumeRate.IsNegative():
		return nil, invalidf("rates must not be negative")
	case !hasCents(tariff.BaseRate), !hasCents(tariff.WeightRate), !hasCents(tariff.VolumeRate):
		return nil, invalidf("rates allow at most two decimal places")
	}

	destination, err := s.store.Dispatch.GetDestination(ctx, tariff.DestinationCode)
	if err != nil {
		return nil, notFound(err, "destination")
	}
	if err := s.store.Dispatch.CreateTariff(ctx, tariff); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidf("tariff %s already exists", tariff.Code)
		}
		return nil, err
	}
	tariff.Destination = destination
	s.log.Info().Str("tariff_code", tariff.Code).Str("zone", string(destination.Zone)).Msg("tariff created")
	return tariff, nil
}
