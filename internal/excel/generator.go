package excel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/logistics-billing/internal/model"
)

const (
	summarySheet  = "Summary"
	invoicesSheet = "Invoices"
)

var registerHeaders = []string{
	"Invoice",
	"Issue date",
	"Client",
	"Expeditions",
	"HT",
	"TVA",
	"TTC",
	"Paid amount",
	"Outstanding",
	"Status",
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes a summary sheet, the full register and one sheet per
// client.
func (g *Generator) Generate(register model.InvoiceRegister) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	g.writeSummary(file, summarySheet, register)

	if _, err := file.NewSheet(invoicesSheet); err != nil {
		return nil, err
	}
	g.writeRows(file, invoicesSheet, register.Rows)

	used := map[string]struct{}{summarySheet: {}, invoicesSheet: {}}
	for _, group := range groupByClient(register.Rows) {
		name := buildSheetName(group.label, used)
		used[name] = struct{}{}
		if _, err := file.NewSheet(name); err != nil {
			return nil, err
		}
		g.writeRows(file, name, group.rows)
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, register model.InvoiceRegister) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	ttc, paid, outstanding := decimal.Zero, decimal.Zero, decimal.Zero
	paidCount := 0
	for _, row := range register.Rows {
		ttc = ttc.Add(row.Invoice.TTC)
		paid = paid.Add(row.PaidAmount)
		outstanding = outstanding.Add(row.Outstanding)
		if row.Invoice.Paid {
			paidCount++
		}
	}

	set("A1", "Period start")
	set("B1", formatDate(register.PeriodStart))
	set("A2", "Period end")
	set("B2", formatDate(register.PeriodEnd))
	set("A3", "Currency")
	set("B3", register.Currency)
	set("A4", "Invoices")
	set("B4", len(register.Rows))
	set("A5", "Paid invoices")
	set("B5", paidCount)
	set("A6", "Total TTC")
	set("B6", amount(ttc))
	set("A7", "Total paid")
	set("B7", amount(paid))
	set("A8", "Outstanding")
	set("B8", amount(outstanding))

	_ = file.SetColWidth(sheet, "A", "A", 24)
	_ = file.SetColWidth(sheet, "B", "B", 18)
}

func (g *Generator) writeRows(file *excelize.File, sheet string, rows []model.InvoiceRegisterRow) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	for i, header := range registerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, row := range rows {
		line := i + 2
		set(fmt.Sprintf("A%d", line), row.Invoice.ID)
		set(fmt.Sprintf("B%d", line), formatDate(row.Invoice.IssueDate))
		set(fmt.Sprintf("C%d", line), clientLabel(row.Invoice.ClientID))
		set(fmt.Sprintf("D%d", line), row.Expeditions)
		set(fmt.Sprintf("E%d", line), amount(row.Invoice.HT))
		set(fmt.Sprintf("F%d", line), amount(row.Invoice.TVA))
		set(fmt.Sprintf("G%d", line), amount(row.Invoice.TTC))
		set(fmt.Sprintf("H%d", line), amount(row.PaidAmount))
		set(fmt.Sprintf("I%d", line), amount(row.Outstanding))
		set(fmt.Sprintf("J%d", line), statusLabel(row))
	}

	_ = file.SetColWidth(sheet, "A", "A", 10)
	_ = file.SetColWidth(sheet, "B", "C", 14)
	_ = file.SetColWidth(sheet, "D", "D", 12)
	_ = file.SetColWidth(sheet, "E", "I", 14)
	_ = file.SetColWidth(sheet, "J", "J", 10)
}

type clientGroup struct {
	label string
	rows  []model.InvoiceRegisterRow
}

func groupByClient(rows []model.InvoiceRegisterRow) []clientGroup {
	index := make(map[string]int)
	var groups []clientGroup
	for _, row := range rows {
		label := clientLabel(row.Invoice.ClientID)
		pos, ok := index[label]
		if !ok {
			groups = append(groups, clientGroup{label: label})
			pos = len(groups) - 1
			index[label] = pos
		}
		groups[pos].rows = append(groups[pos].rows, row)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].label < groups[j].label })
	return groups
}

func buildSheetName(label string, used map[string]struct{}) string {
	base := sanitizeSheetName("Client " + label)
	if len(base) > 31 {
		base = base[:31]
	}

	candidate := base
	for counter := 2; ; counter++ {
		if _, exists := used[candidate]; !exists {
			return candidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		candidate = trimmed + suffix
	}
}

func sanitizeSheetName(value string) string {
	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = strings.TrimSpace(replacer.Replace(value))
	if value == "" {
		return "Sheet"
	}
	return value
}

func clientLabel(clientID *uint) string {
	if clientID == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *clientID)
}

func statusLabel(row model.InvoiceRegisterRow) string {
	switch {
	case row.Invoice.Paid:
		return "PAID"
	case row.Outstanding.IsNegative():
		return "CREDIT"
	default:
		return "UNPAID"
	}
}

func amount(value decimal.Decimal) float64 {
	return value.Round(2).InexactFloat64()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
