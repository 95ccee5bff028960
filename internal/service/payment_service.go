package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

type PaymentService struct {
	store *repository.Store
	cache StatsCache
	log   zerolog.Logger
}

func NewPaymentService(store *repository.Store, cache StatsCache, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		store: store,
		cache: cacheOrNoop(cache),
		log:   log.With().Str("component", "payments").Logger(),
	}
}

type RecordPaymentInput struct {
	Principal model.Principal
	InvoiceID uint
	Amount    decimal.Decimal
	Mode      model.PaymentMode
	Date      time.Time
	Notes     string
}

type PaymentResult struct {
	Payment model.Payment  `json:"payment"`
	Invoice *InvoiceStatus `json:"invoice"`
	// PreviousInvoice is set when an update moved the payment.
	PreviousInvoice *InvoiceStatus `json:"previous_invoice,omitempty"`
}

// RecordPayment checks the amount against the outstanding balance under the
// invoice row lock, stores it and reconciles the paid flag.
func (s *PaymentService) RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentResult, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}
	if input.InvoiceID == 0 {
		return nil, invalidf("invoice_id is required")
	}
	mode, err := normalizeMode(input.Mode)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	date := dateOnly(input.Date)
	if date.IsZero() {
		date = today()
	}

	payment := model.Payment{
		Date:      date,
		Amount:    input.Amount.Round(2),
		Mode:      mode,
		InvoiceID: input.InvoiceID,
		Notes:     input.Notes,
	}

	var status *InvoiceStatus
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		invoice, err := tx.Billing.LockInvoice(ctx, input.InvoiceID)
		if err != nil {
			return notFound(err, "invoice")
		}
		if err := checkOutstanding(ctx, tx, invoice, payment.Amount, 0); err != nil {
			return err
		}
		if err := tx.Billing.CreatePayment(ctx, &payment); err != nil {
			return err
		}
		status, err = applyLedger(ctx, tx, invoice.ID, s.log)
		return err
	})
	if err != nil {
		logRejection(s.log, err, "record payment")
		return nil, err
	}

	invalidateStats(ctx, s.cache, s.log)
	s.log.Info().
		Uint("payment_id", payment.ID).
		Uint("invoice_id", payment.InvoiceID).
		Str("amount", payment.Amount.StringFixed(2)).
		Msg("payment recorded")
	return &PaymentResult{Payment: payment, Invoice: status}, nil
}

type UpdatePaymentInput struct {
	Principal model.Principal
	PaymentID uint
	Amount    *decimal.Decimal
	Mode      *model.PaymentMode
	Date      *time.Time
	Notes     *string
	InvoiceID *uint
}

// UpdatePayment re-validates against the target invoice's outstanding
// balance with this payment's own amount excluded. Moving a payment to
// another invoice reconciles both.
func (s *PaymentService) UpdatePayment(ctx context.Context, input UpdatePaymentInput) (*PaymentResult, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}

	if input.InvoiceID != nil && *input.InvoiceID == 0 {
		return nil, invalidf("invoice_id is required")
	}

	var result PaymentResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var targetID uint
		if input.InvoiceID != nil {
			targetID = *input.InvoiceID
		}
		payment, invoices, err := lockPayment(ctx, tx, input.PaymentID, targetID)
		if err != nil {
			return err
		}
		previousInvoiceID := payment.InvoiceID

		if input.Amount != nil {
			if err := validateAmount(*input.Amount); err != nil {
				return err
			}
			payment.Amount = input.Amount.Round(2)
		}
		if input.Mode != nil {
			mode, err := normalizeMode(*input.Mode)
			if err != nil {
				return err
			}
			payment.Mode = mode
		}
		if input.Date != nil {
			if input.Date.IsZero() {
				return invalidf("date is required")
			}
			payment.Date = dateOnly(*input.Date)
		}
		if input.Notes != nil {
			payment.Notes = *input.Notes
		}
		if targetID != 0 {
			payment.InvoiceID = targetID
		}
		target := invoices[payment.InvoiceID]

		if err := checkOutstanding(ctx, tx, target, payment.Amount, payment.ID); err != nil {
			return err
		}
		if err := tx.Billing.UpdatePayment(ctx, payment); err != nil {
			return err
		}

		result.Payment = *payment
		result.Invoice, err = applyLedger(ctx, tx, payment.InvoiceID, s.log)
		if err != nil {
			return err
		}
		if previousInvoiceID != payment.InvoiceID {
			result.PreviousInvoice, err = applyLedger(ctx, tx, previousInvoiceID, s.log)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logRejection(s.log, err, "update payment")
		return nil, err
	}

	invalidateStats(ctx, s.cache, s.log)
	return &result, nil
}

type DeletePaymentInput struct {
	Principal model.Principal
	PaymentID uint
}

// DeletePayment removes the payment and reconciles its invoice, which may
// go back to unpaid.
func (s *PaymentService) DeletePayment(ctx context.Context, input DeletePaymentInput) (*InvoiceStatus, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}

	var status *InvoiceStatus
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		payment, _, err := lockPayment(ctx, tx, input.PaymentID, 0)
		if err != nil {
			return err
		}
		if err := tx.Billing.DeletePayment(ctx, payment.ID); err != nil {
			return notFound(err, "payment")
		}
		status, err = applyLedger(ctx, tx, payment.InvoiceID, s.log)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateStats(ctx, s.cache, s.log)
	s.log.Info().Uint("payment_id", input.PaymentID).Msg("payment deleted")
	return status, nil
}

// checkOutstanding rejects amount when it is strictly greater than what is
// left to pay on invoice, ignoring the payment excludeID.
func checkOutstanding(ctx context.Context, tx *repository.Store, invoice *model.Invoice, amount decimal.Decimal, excludeID uint) error {
	others, err := tx.Billing.PaymentAmounts(ctx, invoice.ID, excludeID)
	if err != nil {
		return err
	}
	outstanding := Reconcile(invoice.TTC, others).Outstanding
	if amount.GreaterThan(outstanding) {
		return &OverpaymentError{InvoiceID: invoice.ID, Amount: amount, Outstanding: outstanding}
	}
	return nil
}

// lockPayment takes the invoice locks before the payment lock, the order
// DeleteInvoice uses. The payment's invoice is read unlocked first and
// re-checked once the payment row is held. A non-zero targetID is locked
// together with it.
func lockPayment(ctx context.Context, tx *repository.Store, paymentID, targetID uint) (*model.Payment, map[uint]*model.Invoice, error) {
	current, err := tx.Billing.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, notFound(err, "payment")
	}
	if targetID == 0 {
		targetID = current.InvoiceID
	}
	invoices, err := lockInvoicesInOrder(ctx, tx, current.InvoiceID, targetID)
	if err != nil {
		return nil, nil, err
	}

	payment, err := tx.Billing.LockPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, notFound(err, "payment")
	}
	if _, ok := invoices[payment.InvoiceID]; !ok {
		invoice, err := tx.Billing.LockInvoice(ctx, payment.InvoiceID)
		if err != nil {
			return nil, nil, notFound(err, "invoice")
		}
		invoices[payment.InvoiceID] = invoice
	}
	return payment, invoices, nil
}

// lockInvoicesInOrder locks the distinct invoices by ascending id.
func lockInvoicesInOrder(ctx context.Context, tx *repository.Store, a, b uint) (map[uint]*model.Invoice, error) {
	ids := []uint{a}
	if b != a {
		if b < a {
			ids = []uint{b, a}
		} else {
			ids = append(ids, b)
		}
	}

	locked := make(map[uint]*model.Invoice, len(ids))
	for _, id := range ids {
		invoice, err := tx.Billing.LockInvoice(ctx, id)
		if err != nil {
			return nil, notFound(err, fmt.Sprintf("invoice %d", id))
		}
		locked[id] = invoice
	}
	return locked, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidf("amount must be greater than zero")
	}
	if !hasCents(amount) {
		return invalidf("amount has more than two decimal places")
	}
	return nil
}

func normalizeMode(mode model.PaymentMode) (model.PaymentMode, error) {
	if mode == "" {
		return model.PaymentCash, nil
	}
	if !mode.Valid() {
		return "", invalidf("unknown payment mode %q", mode)
	}
	return mode, nil
}
