package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurpe/logistics-billing/internal/http/middleware"
	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/service"
)

type Services struct {
	Invoices    *service.InvoiceService
	Payments    *service.PaymentService
	Expeditions *service.ExpeditionService
	Tours       *service.TourService
	Fleet       *service.FleetService
	Reference   *service.ReferenceService
	Reports     *service.ReportService
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc    Services
	health HealthChecker
	log    zerolog.Logger
}

func NewHandler(svc Services, health HealthChecker, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, health: health, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/healthz", h.healthz)

	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/pricing/quote", h.quotePrice)

	protected.POST("/expeditions", h.createExpedition)
	protected.GET("/expeditions/:id", h.getExpedition)
	protected.PATCH("/expeditions/:id", h.updateExpedition)
	protected.POST("/expeditions/:id/status", h.changeExpeditionStatus)

	protected.POST("/invoices", h.createInvoice)
	protected.GET("/invoices/unpaid", h.listUnpaidInvoices)
	protected.GET("/invoices/stats", h.invoiceStatistics)
	protected.GET("/invoices/revenue", h.revenueEvolution)
	protected.GET("/invoices/export", h.exportInvoiceRegister)
	protected.GET("/invoices/:id", h.getInvoice)
	protected.DELETE("/invoices/:id", h.deleteInvoice)
	protected.GET("/invoices/:id/pdf", h.exportInvoicePDF)
	protected.POST("/invoices/:id/expeditions", h.attachExpedition)
	protected.DELETE("/invoice-links/:id", h.detachExpedition)

	protected.POST("/payments", h.recordPayment)
	protected.GET("/payments/stats", h.paymentStatistics)
	protected.PATCH("/payments/:id", h.updatePayment)
	protected.DELETE("/payments/:id", h.deletePayment)

	protected.POST("/tours/validate", h.validateTour)
	protected.POST("/tours", h.createTour)
	protected.GET("/tours/:code", h.getTour)
	protected.PATCH("/tours/:code", h.updateTour)
	protected.POST("/tours/:code/verify-capacity", h.verifyTourCapacity)

	protected.POST("/vehicles", h.registerVehicle)
	protected.PATCH("/vehicles/:matricule", h.updateVehicle)
	protected.POST("/drivers", h.registerDriver)
	protected.GET("/drivers/:code", h.getDriver)

	protected.POST("/destinations", h.createDestination)
	protected.POST("/tariffs", h.createTariff)
}

func (h *Handler) healthz(c *gin.Context) {
	if err := h.health.Ping(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// principal aborts with 401 when the auth middleware did not run.
func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) bind(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var detailed service.Detailed
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &detailed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "details": detailed.Details()})
	case errors.Is(err, service.ErrExpeditionLocked), errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(value), true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

// parseOptionalDate treats an empty string as "not provided".
func parseOptionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
}

func sendFile(c *gin.Context, contentType string, result *service.FileResult) {
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}
