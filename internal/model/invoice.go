package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VATRate is the fixed TVA rate applied to every invoice.
var VATRate = decimal.RequireFromString("0.19")

type Invoice struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	IssueDate time.Time       `gorm:"type:date;not null;index" json:"issue_date"`
	ClientID  *uint           `gorm:"index" json:"client_id,omitempty"`
	HT        decimal.Decimal `gorm:"column:ht;type:numeric(12,2);not null;default:0" json:"ht"`
	TVA       decimal.Decimal `gorm:"column:tva;type:numeric(12,2);not null;default:0" json:"tva"`
	TTC       decimal.Decimal `gorm:"column:ttc;type:numeric(12,2);not null;default:0" json:"ttc"`
	Paid      bool            `gorm:"not null;default:false;index" json:"paid"`
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Invoice) TableName() string { return "invoices" }

// ExpeditionInvoice links one expedition to one invoice. ExpeditionID is
// unique across the whole table.
type ExpeditionInvoice struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	ExpeditionID uint        `gorm:"not null;uniqueIndex:uq_expedition_invoices_expedition_id" json:"expedition_id"`
	Expedition   *Expedition `gorm:"foreignKey:ExpeditionID;constraint:OnDelete:CASCADE" json:"expedition,omitempty"`
	InvoiceID    uint        `gorm:"not null;index" json:"invoice_id"`
	Invoice      *Invoice    `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"-"`
	AddedAt      time.Time   `gorm:"autoCreateTime" json:"added_at"`
}

func (ExpeditionInvoice) TableName() string { return "expedition_invoices" }

type PaymentMode string

const (
	PaymentCash     PaymentMode = "CASH"
	PaymentCheck    PaymentMode = "CHECK"
	PaymentTransfer PaymentMode = "TRANSFER"
	PaymentCard     PaymentMode = "CARD"
	PaymentMobile   PaymentMode = "MOBILE"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCheck, PaymentTransfer, PaymentCard, PaymentMobile:
		return true
	}
	return false
}

type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Date      time.Time       `gorm:"type:date;not null;index" json:"date"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Mode      PaymentMode     `gorm:"size:20;not null;default:'CASH';index" json:"mode"`
	InvoiceID uint            `gorm:"not null;index" json:"invoice_id"`
	Invoice   *Invoice        `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"-"`
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
