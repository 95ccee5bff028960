package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
)

type BillingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

func (r *BillingRepository) CreateInvoice(ctx context.Context, invoice *model.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *BillingRepository) GetInvoice(ctx context.Context, id uint) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// LockInvoice reads the invoice row under SELECT ... FOR UPDATE. Every
// mutation of links or payments locks the owning invoice first.
func (r *BillingRepository) LockInvoice(ctx context.Context, id uint) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := r.db.WithContext(ctx).Clauses(forUpdate).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// DeleteInvoice removes the invoice together with its payments and links.
func (r *BillingRepository) DeleteInvoice(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec(`DELETE FROM payments WHERE invoice_id = ?`, id).Error; err != nil {
		return err
	}
	if err := db.Exec(`DELETE FROM expedition_invoices WHERE invoice_id = ?`, id).Error; err != nil {
		return err
	}
	res := db.Exec(`DELETE FROM invoices WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BillingRepository) UpdateInvoiceLedger(
	ctx context.Context,
	id uint,
	ht, tva, ttc decimal.Decimal,
	paid bool,
) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE invoices
		SET ht = ?, tva = ?, ttc = ?, paid = ?
		WHERE id = ?
	`, ht, tva, ttc, paid, id).Error
}

func (r *BillingRepository) FindLinkByExpedition(ctx context.Context, expeditionID uint) (*model.ExpeditionInvoice, error) {
	var link model.ExpeditionInvoice
	err := r.db.WithContext(ctx).
		Where("expedition_id = ?", expeditionID).
		Take(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *BillingRepository) CreateLink(ctx context.Context, link *model.ExpeditionInvoice) error {
	return r.db.WithContext(ctx).Omit("Expedition", "Invoice").Create(link).Error
}

func (r *BillingRepository) LockLink(ctx context.Context, id uint) (*model.ExpeditionInvoice, error) {
	var link model.ExpeditionInvoice
	if err := r.db.WithContext(ctx).Clauses(forUpdate).First(&link, id).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *BillingRepository) DeleteLink(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Exec(`DELETE FROM expedition_invoices WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BillingRepository) ListLinks(ctx context.Context, invoiceID uint) ([]model.ExpeditionInvoice, error) {
	var links []model.ExpeditionInvoice
	err := r.db.WithContext(ctx).
		Preload("Expedition").
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

// LinkedAmounts returns the estimated amount of every expedition linked to
// the invoice. Unpriced expeditions yield nil entries.
func (r *BillingRepository) LinkedAmounts(ctx context.Context, invoiceID uint) ([]*decimal.Decimal, error) {
	var rows []struct {
		EstimatedAmount *decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT e.estimated_amount
		FROM expedition_invoices ei
		JOIN expeditions e ON e.id = ei.expedition_id
		WHERE ei.invoice_id = ?
		ORDER BY ei.id ASC
	`, invoiceID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	amounts := make([]*decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		amounts = append(amounts, row.EstimatedAmount)
	}
	return amounts, nil
}

// PaymentAmounts returns the amounts recorded on the invoice, skipping the
// payment identified by excludeID (0 skips nothing).
func (r *BillingRepository) PaymentAmounts(ctx context.Context, invoiceID, excludeID uint) ([]decimal.Decimal, error) {
	var rows []struct {
		Amount decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT amount
		FROM payments
		WHERE invoice_id = ? AND id <> ?
		ORDER BY id ASC
	`, invoiceID, excludeID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	amounts := make([]decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		amounts = append(amounts, row.Amount)
	}
	return amounts, nil
}

func (r *BillingRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Omit("Invoice").Create(payment).Error
}

func (r *BillingRepository) GetPayment(ctx context.Context, id uint) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *BillingRepository) LockPayment(ctx context.Context, id uint) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Clauses(forUpdate).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *BillingRepository) UpdatePayment(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE payments
		SET date = ?, amount = ?, mode = ?, invoice_id = ?, notes = ?
		WHERE id = ?
	`, payment.Date, payment.Amount, payment.Mode, payment.InvoiceID, payment.Notes, payment.ID).Error
}

func (r *BillingRepository) DeletePayment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Exec(`DELETE FROM payments WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BillingRepository) ListPayments(ctx context.Context, invoiceID uint) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("date ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
