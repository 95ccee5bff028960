package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

type ExpeditionService struct {
	store *repository.Store
	cache StatsCache
	log   zerolog.Logger
}

func NewExpeditionService(store *repository.Store, cache StatsCache, log zerolog.Logger) *ExpeditionService {
	return &ExpeditionService{
		store: store,
		cache: cacheOrNoop(cache),
		log:   log.With().Str("component", "expeditions").Logger(),
	}
}

type PriceInput struct {
	Principal  model.Principal
	Weight     decimal.Decimal
	Volume     decimal.Decimal
	TariffCode *string
}

// PriceExpedition quotes an amount without storing anything. A nil result
// means no tariff was given.
func (s *ExpeditionService) PriceExpedition(ctx context.Context, input PriceInput) (*decimal.Decimal, error) {
	if err := validateMeasures(input.Weight, input.Volume); err != nil {
		return nil, err
	}
	tariff, err := s.resolveTariff(ctx, s.store, input.TariffCode)
	if err != nil {
		return nil, err
	}
	return Price(input.Weight, input.Volume, tariff), nil
}

type CreateExpeditionInput struct {
	Principal   model.Principal
	Weight      decimal.Decimal
	Volume      decimal.Decimal
	TariffCode  *string
	ClientID    *uint
	Description string
}

// CreateExpedition prices and stores a new pending expedition. Clients
// always create expeditions on their own account.
func (s *ExpeditionService) CreateExpedition(ctx context.Context, input CreateExpeditionInput) (*model.Expedition, error) {
	clientID := input.ClientID
	switch {
	case input.Principal.CanDispatch():
	case input.Principal.IsClient():
		if input.Principal.ClientID == nil {
			return nil, ErrPermissionDenied
		}
		clientID = input.Principal.ClientID
	default:
		return nil, ErrPermissionDenied
	}

	if err := validateMeasures(input.Weight, input.Volume); err != nil {
		return nil, err
	}
	tariff, err := s.resolveTariff(ctx, s.store, input.TariffCode)
	if err != nil {
		return nil, err
	}

	expedition := &model.Expedition{
		Weight:          input.Weight,
		Volume:          input.Volume,
		EstimatedAmount: Price(input.Weight, input.Volume, tariff),
		Status:          model.ExpeditionPending,
		ClientID:        clientID,
		Description:     input.Description,
	}
	if tariff != nil {
		expedition.TariffCode = &tariff.Code
	}
	if err := s.store.Dispatch.CreateExpedition(ctx, expedition); err != nil {
		return nil, err
	}
	expedition.Tariff = tariff

	s.log.Info().Uint("expedition_id", expedition.ID).Msg("expedition created")
	return expedition, nil
}

type UpdateExpeditionInput struct {
	Principal    model.Principal
	ExpeditionID uint
	Weight       *decimal.Decimal
	Volume       *decimal.Decimal
	TariffCode   *string
	ClearTariff  bool
	Description  *string
}

type ExpeditionResult struct {
	Expedition model.Expedition `json:"expedition"`
	// Invoice is set when the expedition is invoiced and its amount moved.
	Invoice *InvoiceStatus `json:"invoice,omitempty"`
}

// UpdateExpedition reprices the expedition. When it is already invoiced the
// owning invoice is recomputed in the same transaction.
func (s *ExpeditionService) UpdateExpedition(ctx context.Context, input UpdateExpeditionInput) (*ExpeditionResult, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	if input.ClearTariff && input.TariffCode != nil {
		return nil, invalidf("tariff_code and clear_tariff are exclusive")
	}

	var result ExpeditionResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		// Invoice before expedition, the same order AttachExpedition uses.
		invoiceID, err := linkedInvoice(ctx, tx, input.ExpeditionID)
		if err != nil {
			return err
		}
		if invoiceID != 0 {
			if _, err := tx.Billing.LockInvoice(ctx, invoiceID); err != nil {
				return notFound(err, "invoice")
			}
		}

		expedition, err := tx.Dispatch.LockExpedition(ctx, input.ExpeditionID)
		if err != nil {
			return notFound(err, "expedition")
		}
		if !expedition.Status.Editable() {
			return fmt.Errorf("%w: status is %s", ErrExpeditionLocked, expedition.Status)
		}

		if recheck, err := linkedInvoice(ctx, tx, expedition.ID); err != nil {
			return err
		} else if recheck != invoiceID {
			invoiceID = recheck
			if _, err := tx.Billing.LockInvoice(ctx, invoiceID); err != nil {
				return notFound(err, "invoice")
			}
		}

		if input.Weight != nil {
			expedition.Weight = *input.Weight
		}
		if input.Volume != nil {
			expedition.Volume = *input.Volume
		}
		if input.Description != nil {
			expedition.Description = *input.Description
		}
		switch {
		case input.ClearTariff:
			expedition.TariffCode = nil
		case input.TariffCode != nil:
			expedition.TariffCode = nil
			if code := strings.TrimSpace(*input.TariffCode); code != "" {
				expedition.TariffCode = &code
			}
		}
		if err := validateMeasures(expedition.Weight, expedition.Volume); err != nil {
			return err
		}

		tariff, err := s.resolveTariff(ctx, tx, expedition.TariffCode)
		if err != nil {
			return err
		}
		expedition.EstimatedAmount = Price(expedition.Weight, expedition.Volume, tariff)
		if err := tx.Dispatch.UpdateExpedition(ctx, expedition); err != nil {
			return err
		}
		expedition.Tariff = tariff
		result.Expedition = *expedition

		if invoiceID != 0 {
			result.Invoice, err = applyLedger(ctx, tx, invoiceID, s.log)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Invoice != nil {
		invalidateStats(ctx, s.cache, s.log)
	}
	return &result, nil
}

type ChangeStatusInput struct {
	Principal    model.Principal
	ExpeditionID uint
	Status       model.ExpeditionStatus
}

func (s *ExpeditionService) ChangeExpeditionStatus(ctx context.Context, input ChangeStatusInput) (*model.Expedition, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	if !input.Status.Valid() {
		return nil, invalidf("unknown status %q", input.Status)
	}

	var updated *model.Expedition
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		expedition, err := tx.Dispatch.LockExpedition(ctx, input.ExpeditionID)
		if err != nil {
			return notFound(err, "expedition")
		}
		if !expedition.Status.CanTransitionTo(input.Status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, expedition.Status, input.Status)
		}
		expedition.Status = input.Status
		if err := tx.Dispatch.UpdateExpedition(ctx, expedition); err != nil {
			return err
		}
		updated = expedition
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("expedition_id", updated.ID).
		Str("status", string(updated.Status)).
		Msg("expedition status changed")
	return updated, nil
}

type ExpeditionInput struct {
	Principal    model.Principal
	ExpeditionID uint
}

func (s *ExpeditionService) GetExpedition(ctx context.Context, input ExpeditionInput) (*model.Expedition, error) {
	if !input.Principal.CanDispatch() && !input.Principal.IsClient() {
		return nil, ErrPermissionDenied
	}
	expedition, err := s.store.Dispatch.GetExpedition(ctx, input.ExpeditionID)
	if err != nil {
		return nil, notFound(err, "expedition")
	}
	if input.Principal.IsClient() && !sameClient(input.Principal.ClientID, expedition.ClientID) {
		return nil, ErrPermissionDenied
	}
	return expedition, nil
}

func (s *ExpeditionService) resolveTariff(ctx context.Context, store *repository.Store, code *string) (*model.Tariff, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}
	tariff, err := store.Dispatch.GetTariff(ctx, strings.TrimSpace(*code))
	if err != nil {
		return nil, notFound(err, "tariff")
	}
	return tariff, nil
}

// linkedInvoice returns the invoice id the expedition is linked to, or 0.
func linkedInvoice(ctx context.Context, store *repository.Store, expeditionID uint) (uint, error) {
	link, err := store.Billing.FindLinkByExpedition(ctx, expeditionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return link.InvoiceID, nil
}
