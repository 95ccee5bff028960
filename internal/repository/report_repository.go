package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// InvoiceFilter narrows invoice listings. Zero values match everything.
type InvoiceFilter struct {
	Paid     *bool
	ClientID *uint
	From     time.Time
	To       time.Time
}

func (r *ReportRepository) InvoiceStatistics(ctx context.Context) (*model.InvoiceStatistics, error) {
	var row struct {
		TotalInvoices  int64           `gorm:"column:total_invoices"`
		PaidInvoices   int64           `gorm:"column:paid_invoices"`
		UnpaidInvoices int64           `gorm:"column:unpaid_invoices"`
		TotalTTC       decimal.Decimal `gorm:"column:total_ttc"`
		TotalPaid      decimal.Decimal `gorm:"column:total_paid"`
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_invoices,
			COALESCE(SUM(CASE WHEN paid = ? THEN 1 ELSE 0 END), 0) AS paid_invoices,
			COALESCE(SUM(CASE WHEN paid = ? THEN 0 ELSE 1 END), 0) AS unpaid_invoices,
			COALESCE(SUM(ttc), 0) AS total_ttc,
			(SELECT COALESCE(SUM(amount), 0) FROM payments) AS total_paid
		FROM invoices
	`, true, true).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &model.InvoiceStatistics{
		TotalInvoices:  row.TotalInvoices,
		PaidInvoices:   row.PaidInvoices,
		UnpaidInvoices: row.UnpaidInvoices,
		TotalTTC:       row.TotalTTC.Round(2),
		TotalPaid:      row.TotalPaid.Round(2),
		TotalRemaining: row.TotalTTC.Sub(row.TotalPaid).Round(2),
	}, nil
}

func (r *ReportRepository) PaymentTotalsByMode(ctx context.Context) ([]model.PaymentModeTotal, error) {
	var rows []model.PaymentModeTotal
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			mode,
			COUNT(*) AS count,
			COALESCE(SUM(amount), 0) AS total
		FROM payments
		GROUP BY mode
		ORDER BY mode ASC
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, nil
}

// InvoiceTotal is one (issue date, TTC) pair used for revenue bucketing.
type InvoiceTotal struct {
	IssueDate time.Time
	TTC       decimal.Decimal `gorm:"column:ttc"`
}

func (r *ReportRepository) InvoiceTotalsSince(ctx context.Context, from time.Time) ([]InvoiceTotal, error) {
	var rows []InvoiceTotal
	err := r.db.WithContext(ctx).Raw(`
		SELECT issue_date, ttc
		FROM invoices
		WHERE issue_date >= ?
		ORDER BY issue_date ASC
	`, from).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ReportRepository) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&model.Invoice{})
	query = applyInvoiceFilter(query, filter, "")

	var invoices []model.Invoice
	if err := query.Order("issue_date ASC, id ASC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *ReportRepository) InvoiceRegister(ctx context.Context, filter InvoiceFilter) ([]model.InvoiceRegisterRow, error) {
	var rows []struct {
		model.Invoice
		ExpeditionCount int64           `gorm:"column:expedition_count"`
		PaidAmount      decimal.Decimal `gorm:"column:paid_amount"`
	}

	query := r.db.WithContext(ctx).
		Table("invoices AS i").
		Select(strings.Join([]string{
			"i.*",
			"(SELECT COUNT(*) FROM expedition_invoices ei WHERE ei.invoice_id = i.id) AS expedition_count",
			"(SELECT COALESCE(SUM(p.amount), 0) FROM payments p WHERE p.invoice_id = i.id) AS paid_amount",
		}, ", "))
	query = applyInvoiceFilter(query, filter, "i.")
	if err := query.Order("i.issue_date ASC, i.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]model.InvoiceRegisterRow, 0, len(rows))
	for _, row := range rows {
		paid := row.PaidAmount.Round(2)
		result = append(result, model.InvoiceRegisterRow{
			Invoice:     row.Invoice,
			Expeditions: row.ExpeditionCount,
			PaidAmount:  paid,
			Outstanding: row.Invoice.TTC.Sub(paid),
		})
	}
	return result, nil
}

func applyInvoiceFilter(query *gorm.DB, filter InvoiceFilter, prefix string) *gorm.DB {
	if filter.Paid != nil {
		query = query.Where(prefix+"paid = ?", *filter.Paid)
	}
	if filter.ClientID != nil {
		query = query.Where(prefix+"client_id = ?", *filter.ClientID)
	}
	if !filter.From.IsZero() {
		query = query.Where(prefix+"issue_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where(prefix+"issue_date < ?", filter.To)
	}
	return query
}
