package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/model"
)

const fontName = "Helvetica"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders one invoice with its expeditions, totals and payments.
// Text goes through the cp1252 translator so accented city names survive
// the core font.
func (g *Generator) Generate(doc model.InvoiceDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(fontName, "B", 16)
	pdf.CellFormat(0, 10, tr(safeValue(doc.CompanyName)), "", 1, "L", false, 0, "")

	pdf.SetFont(fontName, "B", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("Invoice No. %06d", doc.Invoice.ID), "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issue date: %s", formatDate(doc.Invoice.IssueDate)), "", 1, "L", false, 0, "")
	if doc.Invoice.ClientID != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Client: %d", *doc.Invoice.ClientID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, "Expeditions", "", 1, "L", false, 0, "")
	colWidths := []float64{20, 30, 30, 30, 70}
	drawTableRow(pdf, []string{"ID", "Weight (kg)", "Volume (m3)", "Tariff", "Amount"}, colWidths, true)
	for _, expedition := range doc.Expeditions {
		drawTableRow(pdf, []string{
			fmt.Sprintf("%d", expedition.ID),
			expedition.Weight.StringFixed(2),
			expedition.Volume.StringFixed(2),
			tr(safeValue(derefString(expedition.TariffCode))),
			formatMoney(expedition.AmountOrZero(), doc.Currency),
		}, colWidths, false)
	}
	pdf.Ln(4)

	pdf.SetFont(fontName, "", 11)
	vatPercent := model.VATRate.Mul(decimal.NewFromInt(100)).StringFixed(0)
	totalLine(pdf, "Total HT", formatMoney(doc.Invoice.HT, doc.Currency))
	totalLine(pdf, fmt.Sprintf("TVA (%s%%)", vatPercent), formatMoney(doc.Invoice.TVA, doc.Currency))
	pdf.SetFont(fontName, "B", 11)
	totalLine(pdf, "Total TTC", formatMoney(doc.Invoice.TTC, doc.Currency))
	pdf.SetFont(fontName, "", 11)
	totalLine(pdf, "Paid", formatMoney(doc.PaidAmount, doc.Currency))
	totalLine(pdf, "Outstanding", formatMoney(doc.Outstanding, doc.Currency))

	if doc.Outstanding.IsNegative() {
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, fmt.Sprintf("Payments exceed the invoice total by %s.",
			formatMoney(doc.Outstanding.Neg(), doc.Currency)), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	if len(doc.Payments) > 0 {
		pdf.Ln(4)
		pdf.SetFont(fontName, "B", 12)
		pdf.CellFormat(0, 8, "Payments", "", 1, "L", false, 0, "")
		payWidths := []float64{40, 40, 100}
		drawTableRow(pdf, []string{"Date", "Mode", "Amount"}, payWidths, true)
		for _, payment := range doc.Payments {
			drawTableRow(pdf, []string{
				formatDate(payment.Date),
				string(payment.Mode),
				formatMoney(payment.Amount, doc.Currency),
			}, payWidths, false)
		}
	}

	if strings.TrimSpace(doc.Invoice.Notes) != "" {
		pdf.Ln(4)
		pdf.SetFont(fontName, "", 10)
		pdf.MultiCell(0, 5, tr(doc.Invoice.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func totalLine(pdf *gofpdf.Fpdf, label, value string) {
	pdf.CellFormat(140, 6, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, value, "", 1, "R", false, 0, "")
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatMoney(value decimal.Decimal, currency string) string {
	return strings.TrimSpace(value.StringFixed(2) + " " + currency)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}
