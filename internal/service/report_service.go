package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/config"
	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/repository"
)

type RegisterGenerator interface {
	Generate(register model.InvoiceRegister) ([]byte, error)
}

type InvoiceGenerator interface {
	Generate(doc model.InvoiceDocument) ([]byte, error)
}

const (
	defaultRevenueMonths = 12
	maxRevenueMonths     = 60
)

type ReportService struct {
	store   *repository.Store
	cache   StatsCache
	excel   RegisterGenerator
	pdf     InvoiceGenerator
	billing config.BillingConfig
	log     zerolog.Logger
	now     func() time.Time
}

func NewReportService(
	store *repository.Store,
	cache StatsCache,
	excel RegisterGenerator,
	pdf InvoiceGenerator,
	cfg *config.Config,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		store:   store,
		cache:   cacheOrNoop(cache),
		excel:   excel,
		pdf:     pdf,
		billing: cfg.Billing,
		log:     log.With().Str("component", "reports").Logger(),
		now:     time.Now,
	}
}

type ReportInput struct {
	Principal model.Principal
}

func (s *ReportService) InvoiceStatistics(ctx context.Context, input ReportInput) (*model.InvoiceStatistics, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}

	var stats model.InvoiceStatistics
	if s.cached(ctx, "invoices", &stats) {
		return &stats, nil
	}
	fresh, err := s.store.Reports.InvoiceStatistics(ctx)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, "invoices", fresh)
	return fresh, nil
}

func (s *ReportService) PaymentStatistics(ctx context.Context, input ReportInput) (*model.PaymentStatistics, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}

	var stats model.PaymentStatistics
	if s.cached(ctx, "payments", &stats) {
		return &stats, nil
	}

	byMode, err := s.store.Reports.PaymentTotalsByMode(ctx)
	if err != nil {
		return nil, err
	}
	stats = model.PaymentStatistics{TotalAmount: decimal.Zero, ByMode: byMode}
	for _, row := range byMode {
		stats.TotalPayments += row.Count
		stats.TotalAmount = stats.TotalAmount.Add(row.Total)
	}
	s.remember(ctx, "payments", stats)
	return &stats, nil
}

type RevenueInput struct {
	Principal model.Principal
	Months    int
}

// RevenueEvolution buckets invoice TTC per calendar month over the last
// Months months, oldest first. EvolutionPercent is nil for the first month
// and whenever the previous month had no revenue.
func (s *ReportService) RevenueEvolution(ctx context.Context, input RevenueInput) ([]model.RevenuePoint, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}
	months := input.Months
	if months == 0 {
		months = defaultRevenueMonths
	}
	if months < 1 || months > maxRevenueMonths {
		return nil, invalidf("months must be between 1 and %d", maxRevenueMonths)
	}

	now := s.now().UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := current.AddDate(0, -(months - 1), 0)

	key := fmt.Sprintf("revenue:%d:%s", months, current.Format("2006-01"))
	var points []model.RevenuePoint
	if s.cached(ctx, key, &points) {
		return points, nil
	}

	rows, err := s.store.Reports.InvoiceTotalsSince(ctx, first)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal, months)
	for _, row := range rows {
		month := row.IssueDate.UTC().Format("2006-01")
		totals[month] = totals[month].Add(row.TTC)
	}

	points = make([]model.RevenuePoint, 0, months)
	hundred := decimal.NewFromInt(100)
	for i := 0; i < months; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		point := model.RevenuePoint{Month: month, TotalTTC: totals[month].Round(2)}
		if i > 0 {
			previous := points[i-1].TotalTTC
			if !previous.IsZero() {
				evolution := point.TotalTTC.Sub(previous).Div(previous).Mul(hundred).Round(2)
				point.EvolutionPercent = &evolution
			}
		}
		points = append(points, point)
	}

	s.remember(ctx, key, points)
	return points, nil
}

type UnpaidInput struct {
	Principal model.Principal
	ClientID  *uint
}

func (s *ReportService) ListUnpaidInvoices(ctx context.Context, input UnpaidInput) ([]model.Invoice, error) {
	clientID := input.ClientID
	switch {
	case input.Principal.CanBill():
	case input.Principal.IsClient() && input.Principal.ClientID != nil:
		clientID = input.Principal.ClientID
	default:
		return nil, ErrPermissionDenied
	}

	paid := false
	return s.store.Reports.ListInvoices(ctx, repository.InvoiceFilter{Paid: &paid, ClientID: clientID})
}

type ExportRegisterInput struct {
	Principal   model.Principal
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type FileResult struct {
	FileName string
	Content  []byte
}

// ExportInvoiceRegister renders every invoice issued between the two dates
// inclusive as a spreadsheet.
func (s *ReportService) ExportInvoiceRegister(ctx context.Context, input ExportRegisterInput) (*FileResult, error) {
	if !input.Principal.CanBill() {
		return nil, ErrPermissionDenied
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, invalidf("period dates are required")
	}
	periodStart := dateOnly(input.PeriodStart)
	periodEnd := dateOnly(input.PeriodEnd)
	if periodStart.After(periodEnd) {
		return nil, invalidf("period_start must be before or equal to period_end")
	}

	rows, err := s.store.Reports.InvoiceRegister(ctx, repository.InvoiceFilter{
		From: periodStart,
		To:   periodEnd.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}

	content, err := s.excel.Generate(model.InvoiceRegister{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Currency:    s.billing.Currency,
		Rows:        rows,
	})
	if err != nil {
		return nil, err
	}

	period := fmt.Sprintf("%s-%s", periodStart.Format("20060102"), periodEnd.Format("20060102"))
	return &FileResult{
		FileName: fmt.Sprintf("invoices-%s.xlsx", period),
		Content:  content,
	}, nil
}

type ExportInvoiceInput struct {
	Principal model.Principal
	InvoiceID uint
}

func (s *ReportService) ExportInvoicePDF(ctx context.Context, input ExportInvoiceInput) (*FileResult, error) {
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

	links, err := s.store.Billing.ListLinks(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.Billing.ListPayments(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	expeditions := make([]model.Expedition, 0, len(links))
	for _, link := range links {
		if link.Expedition != nil {
			expeditions = append(expeditions, *link.Expedition)
		}
	}
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, payment := range payments {
		amounts = append(amounts, payment.Amount)
	}
	balance := Reconcile(invoice.TTC, amounts)

	content, err := s.pdf.Generate(model.InvoiceDocument{
		Invoice:     *invoice,
		Expeditions: expeditions,
		Payments:    payments,
		PaidAmount:  balance.PaidAmount,
		Outstanding: balance.Outstanding,
		CompanyName: s.billing.CompanyName,
		Currency:    s.billing.Currency,
	})
	if err != nil {
		return nil, err
	}

	return &FileResult{
		FileName: fmt.Sprintf("invoice-%06d-%s.pdf", invoice.ID, sanitizeFileName(invoice.IssueDate.Format("2006-01-02"))),
		Content:  content,
	}, nil
}

func (s *ReportService) cached(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		return false
	}
	return hit
}

func (s *ReportService) remember(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
