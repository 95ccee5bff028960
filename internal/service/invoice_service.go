package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

type InvoiceService struct {
	store *repository.Store
	cache StatsCache
	log   zerolog.Logger
}

func NewInvoiceService(store *repository.Store, cache StatsCache, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		store: store,
		cache: cacheOrNoop(cache),
		log:   log.With().Str("component", "invoices").Logger(),
	}
}

type CreateInvoiceInput struct {
	Principal model.Principal
	IssueDate time.Time
	ClientID  *uint
	Notes     string
}

// CreateInvoice opens an empty invoice with zero totals.
func (s *InvoiceService) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*model.Invoice, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}

	issueDate := dateOnly(input.IssueDate)
	if issueDate.IsZero() {
		issueDate = today()
	}

	invoice := &model.Invoice{
		IssueDate: issueDate,
		ClientID:  input.ClientID,
		Notes:     input.Notes,
	}
	if err := s.store.Billing.CreateInvoice(ctx, invoice); err != nil {
		return nil, err
	}

	invalidateStats(ctx, s.cache, s.log)
	s.log.Info().Uint("invoice_id", invoice.ID).Msg("invoice created")
	return invoice, nil
}

type InvoiceInput struct {
	Principal model.Principal
	InvoiceID uint
}

type InvoiceDetails struct {
	Invoice  model.Invoice             `json:"invoice"`
	Status   InvoiceStatus             `json:"status"`
	Links    []model.ExpeditionInvoice `json:"links"`
	Payments []model.Payment           `json:"payments"`
}

func (s *InvoiceService) GetInvoice(ctx context.Context, input InvoiceInput) (*InvoiceDetails, error) {
	invoice, err := s.readableInvoice(ctx, input)
	if err != nil {
		return nil, err
	}

	status, err := currentStatus(ctx, s.store, invoice)
	if err != nil {
		return nil, err
	}
	links, err := s.store.Billing.ListLinks(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.Billing.ListPayments(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	return &InvoiceDetails{
		Invoice:  *invoice,
		Status:   *status,
		Links:    links,
		Payments: payments,
	}, nil
}

func (s *InvoiceService) ListInvoiceLinks(ctx context.Context, input InvoiceInput) ([]model.ExpeditionInvoice, error) {
	invoice, err := s.readableInvoice(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.store.Billing.ListLinks(ctx, invoice.ID)
}

func (s *InvoiceService) ListPayments(ctx context.Context, input InvoiceInput) ([]model.Payment, error) {
	invoice, err := s.readableInvoice(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.store.Billing.ListPayments(ctx, invoice.ID)
}

// DeleteInvoice removes the invoice with its payments and links in one
// transaction.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, input InvoiceInput) error {
	if !input.Principal.CanBill() {
		return ErrPermissionDenied
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Billing.LockInvoice(ctx, input.InvoiceID); err != nil {
			return notFound(err, "invoice")
		}
		return notFound(tx.Billing.DeleteInvoice(ctx, input.InvoiceID), "invoice")
	})
	if err != nil {
		return err
	}

	invalidateStats(ctx, s.cache, s.log)
	s.log.Info().Uint("invoice_id", input.InvoiceID).Msg("invoice deleted")
	return nil
}

type AttachInput struct {
	Principal    model.Principal
	ExpeditionID uint
	InvoiceID    uint
}

// AttachExpedition links an expedition to an invoice and recomputes the
// invoice. An expedition already linked anywhere, including to the same
// invoice, is rejected.
func (s *InvoiceService) AttachExpedition(ctx context.Context, input AttachInput) (*InvoiceStatus, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}
	if input.ExpeditionID == 0 || input.InvoiceID == 0 {
		return nil, invalidf("expedition_id and invoice_id are required")
	}

	var status *InvoiceStatus
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Billing.LockInvoice(ctx, input.InvoiceID); err != nil {
			return notFound(err, "invoice")
		}
		if _, err := tx.Dispatch.LockExpedition(ctx, input.ExpeditionID); err != nil {
			return notFound(err, "expedition")
		}

		existing, err := tx.Billing.FindLinkByExpedition(ctx, input.ExpeditionID)
		switch {
		case err == nil:
			return &AlreadyInvoicedError{ExpeditionID: input.ExpeditionID, InvoiceID: existing.InvoiceID}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		link := &model.ExpeditionInvoice{
			ExpeditionID: input.ExpeditionID,
			InvoiceID:    input.InvoiceID,
		}
		if err := tx.Billing.CreateLink(ctx, link); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &AlreadyInvoicedError{ExpeditionID: input.ExpeditionID}
			}
			return err
		}

		status, err = applyLedger(ctx, tx, input.InvoiceID, s.log)
		return err
	})
	if err != nil {
		logRejection(s.log, err, "attach expedition")
		return nil, err
	}

	invalidateStats(ctx, s.cache, s.log)
	return status, nil
}

type DetachInput struct {
	Principal model.Principal
	LinkID    uint
}

// DetachExpedition deletes a link and recomputes the invoice that owned it.
func (s *InvoiceService) DetachExpedition(ctx context.Context, input DetachInput) (*InvoiceStatus, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}

	var status *InvoiceStatus
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		link, err := tx.Billing.LockLink(ctx, input.LinkID)
		if err != nil {
			return notFound(err, "invoice link")
		}
		if _, err := tx.Billing.LockInvoice(ctx, link.InvoiceID); err != nil {
			return notFound(err, "invoice")
		}
		if err := tx.Billing.DeleteLink(ctx, link.ID); err != nil {
			return notFound(err, "invoice link")
		}

		status, err = applyLedger(ctx, tx, link.InvoiceID, s.log)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateStats(ctx, s.cache, s.log)
	return status, nil
}

// readableInvoice loads an invoice the principal may see. Clients only see
// their own invoices.
func (s *InvoiceService) readableInvoice(ctx context.Context, input InvoiceInput) (*model.Invoice, error) {
	if !input.Principal.CanBill() && !input.Principal.IsClient() {
		return nil, ErrPermissionDenied
	}
	invoice, err := s.store.Billing.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	if input.Principal.IsClient() && !sameClient(input.Principal.ClientID, invoice.ClientID) {
		return nil, ErrPermissionDenied
	}
	return invoice, nil
}

func sameClient(a, b *uint) bool {
	return a != nil && b != nil && *a == *b
}

func logRejection(log zerolog.Logger, err error, operation string) {
	var detailed Detailed
	if errors.As(err, &detailed) {
		log.Warn().Err(err).Str("operation", operation).Fields(detailed.Details()).Msg("rejected")
	}
}
