package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

type Totals struct {
	HT  decimal.Decimal `json:"ht"`
	TVA decimal.Decimal `json:"tva"`
	TTC decimal.Decimal `json:"ttc"`
}

// Recompute derives invoice totals from the linked expedition amounts.
// Missing amounts count as zero.
func Recompute(amounts []*decimal.Decimal) Totals {
	ht := decimal.Zero
	for _, amount := range amounts {
		if amount != nil {
			ht = ht.Add(*amount)
		}
	}
	ht = ht.Round(2)
	tva := ht.Mul(model.VATRate).Round(2)
	return Totals{HT: ht, TVA: tva, TTC: ht.Add(tva)}
}

type Balance struct {
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	// Credit is what payments exceed TTC by after the invoice shrank.
	Credit decimal.Decimal `json:"credit"`
	Paid   bool            `json:"paid"`
}

// Reconcile settles the paid flag against TTC. An invoice is paid when it
// has a positive TTC and nothing is outstanding. This departs from the
// "paid iff outstanding <= 0" rule: a negative outstanding is reported as
// credit and leaves the invoice unpaid until someone settles the difference.
func Reconcile(ttc decimal.Decimal, payments []decimal.Decimal) Balance {
	paid := decimal.Zero
	for _, amount := range payments {
		paid = paid.Add(amount)
	}
	outstanding := ttc.Sub(paid)

	balance := Balance{
		PaidAmount:  paid,
		Outstanding: outstanding,
		Credit:      decimal.Zero,
		Paid:        ttc.IsPositive() && outstanding.IsZero(),
	}
	if outstanding.IsNegative() {
		balance.Credit = outstanding.Neg()
	}
	return balance
}

// InvoiceStatus is what every ledger mutation returns.
type InvoiceStatus struct {
	InvoiceID uint `json:"invoice_id"`
	Totals
	Balance
}

// applyLedger reloads links and payments inside the caller's transaction,
// recomputes and reconciles, and persists ht/tva/ttc/paid in one statement.
// The caller must already hold the invoice row lock.
func applyLedger(ctx context.Context, tx *repository.Store, invoiceID uint, log zerolog.Logger) (*InvoiceStatus, error) {
	amounts, err := tx.Billing.LinkedAmounts(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := tx.Billing.PaymentAmounts(ctx, invoiceID, 0)
	if err != nil {
		return nil, err
	}

	totals := Recompute(amounts)
	balance := Reconcile(totals.TTC, payments)

	if err := tx.Billing.UpdateInvoiceLedger(ctx, invoiceID, totals.HT, totals.TVA, totals.TTC, balance.Paid); err != nil {
		return nil, err
	}

	if balance.Credit.IsPositive() {
		log.Warn().
			Uint("invoice_id", invoiceID).
			Str("ttc", totals.TTC.StringFixed(2)).
			Str("paid_amount", balance.PaidAmount.StringFixed(2)).
			Str("credit", balance.Credit.StringFixed(2)).
			Msg("payments exceed invoice total")
	}
	log.Info().
		Uint("invoice_id", invoiceID).
		Str("ht", totals.HT.StringFixed(2)).
		Str("ttc", totals.TTC.StringFixed(2)).
		Bool("paid", balance.Paid).
		Msg("invoice ledger updated")

	return &InvoiceStatus{InvoiceID: invoiceID, Totals: totals, Balance: balance}, nil
}

// currentStatus reads totals as stored and reconciles against payments
// without writing.
func currentStatus(ctx context.Context, store *repository.Store, invoice *model.Invoice) (*InvoiceStatus, error) {
	payments, err := store.Billing.PaymentAmounts(ctx, invoice.ID, 0)
	if err != nil {
		return nil, err
	}
	totals := Totals{HT: invoice.HT, TVA: invoice.TVA, TTC: invoice.TTC}
	return &InvoiceStatus{
		InvoiceID: invoice.ID,
		Totals:    totals,
		Balance:   Reconcile(invoice.TTC, payments),
	}, nil
}
