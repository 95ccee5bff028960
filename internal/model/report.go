package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatistics struct {
	TotalInvoices  int64           `json:"total_invoices"`
	PaidInvoices   int64           `json:"paid_invoices"`
	UnpaidInvoices int64           `json:"unpaid_invoices"`
	TotalTTC       decimal.Decimal `json:"total_ttc"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
}

type PaymentModeTotal struct {
	Mode  PaymentMode     `json:"mode"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type PaymentStatistics struct {
	TotalPayments int64              `json:"total_payments"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	ByMode        []PaymentModeTotal `json:"by_mode"`
}

type RevenuePoint struct {
	Month            string           `json:"month"`
	TotalTTC         decimal.Decimal  `json:"total_ttc"`
	EvolutionPercent *decimal.Decimal `json:"evolution_percent"`
}

// InvoiceRegister is the spreadsheet export of invoices issued in a period.
type InvoiceRegister struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Currency    string
	Rows        []InvoiceRegisterRow
}

type InvoiceRegisterRow struct {
	Invoice     Invoice
	Expeditions int64
	PaidAmount  decimal.Decimal
	Outstanding decimal.Decimal
}

// InvoiceDocument carries everything the PDF renderer needs.
type InvoiceDocument struct {
	Invoice     Invoice
	Expeditions []Expedition
	Payments    []Payment
	PaidAmount  decimal.Decimal
	Outstanding decimal.Decimal
	CompanyName string
	Currency    string
}
