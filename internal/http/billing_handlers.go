package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/service"
)

type createInvoiceRequest struct {
	IssueDate string `json:"issue_date"`
	ClientID  *uint  `json:"client_id"`
	Notes     string `json:"notes"`
}

func (h *Handler) createInvoice(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createInvoiceRequest
	if !h.bind(c, &req) {
		return
	}
	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid issue_date"})
		return
	}

	invoice, err := h.svc.Invoices.CreateInvoice(c.Request.Context(), service.CreateInvoiceInput{
		Principal: principal,
		IssueDate: issueDate,
		ClientID:  req.ClientID,
		Notes:     req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *Handler) getInvoice(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	details, err := h.svc.Invoices.GetInvoice(c.Request.Context(), service.InvoiceInput{Principal: principal, InvoiceID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) deleteInvoice(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Invoices.DeleteInvoice(c.Request.Context(), service.InvoiceInput{Principal: principal, InvoiceID: id}); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type attachRequest struct {
	ExpeditionID uint `json:"expedition_id" binding:"required"`
}

func (h *Handler) attachExpedition(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	invoiceID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req attachRequest
	if !h.bind(c, &req) {
		return
	}

	status, err := h.svc.Invoices.AttachExpedition(c.Request.Context(), service.AttachInput{
		Principal:    principal,
		ExpeditionID: req.ExpeditionID,
		InvoiceID:    invoiceID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, status)
}

func (h *Handler) detachExpedition(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	linkID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	status, err := h.svc.Invoices.DetachExpedition(c.Request.Context(), service.DetachInput{Principal: principal, LinkID: linkID})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type recordPaymentRequest struct {
	InvoiceID uint            `json:"invoice_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode"`
	Date      string          `json:"date"`
	Notes     string          `json:"notes"`
}

func (h *Handler) recordPayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req recordPaymentRequest
	if !h.bind(c, &req) {
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	result, err := h.svc.Payments.RecordPayment(c.Request.Context(), service.RecordPaymentInput{
		Principal: principal,
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		Mode:      model.PaymentMode(strings.ToUpper(strings.TrimSpace(req.Mode))),
		Date:      date,
		Notes:     req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type updatePaymentRequest struct {
	InvoiceID *uint            `json:"invoice_id"`
	Amount    *decimal.Decimal `json:"amount"`
	Mode      *string          `json:"mode"`
	Date      *string          `json:"date"`
	Notes     *string          `json:"notes"`
}

func (h *Handler) updatePayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req updatePaymentRequest
	if !h.bind(c, &req) {
		return
	}

	input := service.UpdatePaymentInput{
		Principal: principal,
		PaymentID: id,
		Amount:    req.Amount,
		Notes:     req.Notes,
		InvoiceID: req.InvoiceID,
	}
	if req.Mode != nil {
		mode := model.PaymentMode(strings.ToUpper(strings.TrimSpace(*req.Mode)))
		input.Mode = &mode
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		input.Date = &date
	}

	result, err := h.svc.Payments.UpdatePayment(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) deletePayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	status, err := h.svc.Payments.DeletePayment(c.Request.Context(), service.DeletePaymentInput{Principal: principal, PaymentID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) listUnpaidInvoices(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	input := service.UnpaidInput{Principal: principal}
	if raw := c.Query("client_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
			return
		}
		clientID := uint(value)
		input.ClientID = &clientID
	}

	invoices, err := h.svc.Reports.ListUnpaidInvoices(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *Handler) invoiceStatistics(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	stats, err := h.svc.Reports.InvoiceStatistics(c.Request.Context(), service.ReportInput{Principal: principal})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) paymentStatistics(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	stats, err := h.svc.Reports.PaymentStatistics(c.Request.Context(), service.ReportInput{Principal: principal})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) revenueEvolution(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	input := service.RevenueInput{Principal: principal}
	if raw := c.Query("months"); raw != "" {
		months, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid months"})
			return
		}
		input.Months = months
	}

	points, err := h.svc.Reports.RevenueEvolution(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": points})
}

func (h *Handler) exportInvoiceRegister(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	start, err := parseDate(c.Query("period_start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	end, err := parseDate(c.Query("period_end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}

	result, err := h.svc.Reports.ExportInvoiceRegister(c.Request.Context(), service.ExportRegisterInput{
		Principal:   principal,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result)
}

func (h *Handler) exportInvoicePDF(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Reports.ExportInvoicePDF(c.Request.Context(), service.ExportInvoiceInput{Principal: principal, InvoiceID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, "application/pdf", result)
}
