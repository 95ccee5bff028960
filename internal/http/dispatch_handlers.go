package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/model"
	"github.com/nurpe/logistics-billing/internal/service"
)

type quoteRequest struct {
	Weight     decimal.Decimal `json:"weight"`
	Volume     decimal.Decimal `json:"volume"`
	TariffCode *string         `json:"tariff_code"`
}

func (h *Handler) quotePrice(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req quoteRequest
	if !h.bind(c, &req) {
		return
	}

	amount, err := h.svc.Expeditions.PriceExpedition(c.Request.Context(), service.PriceInput{
		Principal:  principal,
		Weight:     req.Weight,
		Volume:     req.Volume,
		TariffCode: req.TariffCode,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": amount})
}

type createExpeditionRequest struct {
	Weight      decimal.Decimal `json:"weight"`
	Volume      decimal.Decimal `json:"volume"`
	TariffCode  *string         `json:"tariff_code"`
	ClientID    *uint           `json:"client_id"`
	Description string          `json:"description"`
}

func (h *Handler) createExpedition(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createExpeditionRequest
	if !h.bind(c, &req) {
		return
	}

	expedition, err := h.svc.Expeditions.CreateExpedition(c.Request.Context(), service.CreateExpeditionInput{
		Principal:   principal,
		Weight:      req.Weight,
		Volume:      req.Volume,
		TariffCode:  req.TariffCode,
		ClientID:    req.ClientID,
		Description: req.Description,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expedition)
}

func (h *Handler) getExpedition(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	expedition, err := h.svc.Expeditions.GetExpedition(c.Request.Context(), service.ExpeditionInput{Principal: principal, ExpeditionID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, expedition)
}

type updateExpeditionRequest struct {
	Weight      *decimal.Decimal `json:"weight"`
	Volume      *decimal.Decimal `json:"volume"`
	TariffCode  *string          `json:"tariff_code"`
	ClearTariff bool             `json:"clear_tariff"`
	Description *string          `json:"description"`
}

func (h *Handler) updateExpedition(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req updateExpeditionRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Expeditions.UpdateExpedition(c.Request.Context(), service.UpdateExpeditionInput{
		Principal:    principal,
		ExpeditionID: id,
		Weight:       req.Weight,
		Volume:       req.Volume,
		TariffCode:   req.TariffCode,
		ClearTariff:  req.ClearTariff,
		Description:  req.Description,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) changeExpeditionStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req changeStatusRequest
	if !h.bind(c, &req) {
		return
	}

	expedition, err := h.svc.Expeditions.ChangeExpeditionStatus(c.Request.Context(), service.ChangeStatusInput{
		Principal:    principal,
		ExpeditionID: id,
		Status:       model.ExpeditionStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, expedition)
}

type validateTourRequest struct {
	DriverCode       string `json:"driver_code" binding:"required"`
	VehicleMatricule string `json:"vehicle_matricule" binding:"required"`
	ExpeditionIDs    []uint `json:"expedition_ids"`
}

func (h *Handler) validateTour(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req validateTourRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.svc.Tours.ValidateTour(c.Request.Context(), service.ValidateTourInput{
		Principal:        principal,
		DriverCode:       req.DriverCode,
		VehicleMatricule: req.VehicleMatricule,
		ExpeditionIDs:    req.ExpeditionIDs,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

type createTourRequest struct {
	Code             string `json:"code" binding:"required"`
	Date             string `json:"date"`
	DriverCode       string `json:"driver_code" binding:"required"`
	VehicleMatricule string `json:"vehicle_matricule" binding:"required"`
	ExpeditionIDs    []uint `json:"expedition_ids"`
}

func (h *Handler) createTour(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createTourRequest
	if !h.bind(c, &req) {
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	tour, err := h.svc.Tours.CreateTour(c.Request.Context(), service.CreateTourInput{
		Principal:        principal,
		Code:             req.Code,
		Date:             date,
		DriverCode:       req.DriverCode,
		VehicleMatricule: req.VehicleMatricule,
		ExpeditionIDs:    req.ExpeditionIDs,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tour)
}

func (h *Handler) getTour(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	tour, err := h.svc.Tours.GetTour(c.Request.Context(), service.TourInput{Principal: principal, TourCode: c.Param("code")})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

type updateTourRequest struct {
	Date             *string `json:"date"`
	VehicleMatricule *string `json:"vehicle_matricule"`
	ExpeditionIDs    *[]uint `json:"expedition_ids"`
}

func (h *Handler) updateTour(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req updateTourRequest
	if !h.bind(c, &req) {
		return
	}

	input := service.UpdateTourInput{
		Principal:        principal,
		TourCode:         c.Param("code"),
		VehicleMatricule: req.VehicleMatricule,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		input.Date = &date
	}
	if req.ExpeditionIDs != nil {
		input.ExpeditionIDs = append([]uint{}, *req.ExpeditionIDs...)
	}

	tour, err := h.svc.Tours.UpdateTour(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

// verifyTourCapacity reports the computed load alongside an overload
// rejection so the caller can see by how much the vehicle is exceeded.
func (h *Handler) verifyTourCapacity(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	load, err := h.svc.Tours.VerifyTourCapacity(c.Request.Context(), service.TourInput{Principal: principal, TourCode: c.Param("code")})
	var overload *service.OverloadError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true, "load": load})
	case errors.As(err, &overload):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "details": overload.Details(), "load": load})
	default:
		h.handleError(c, err)
	}
}

type registerVehicleRequest struct {
	Matricule string          `json:"matricule" binding:"required"`
	Type      string          `json:"type" binding:"required"`
	MaxWeight decimal.Decimal `json:"max_weight"`
	MaxVolume decimal.Decimal `json:"max_volume"`
	State     string          `json:"state"`
}

func (h *Handler) registerVehicle(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req registerVehicleRequest
	if !h.bind(c, &req) {
		return
	}

	vehicle, err := h.svc.Fleet.RegisterVehicle(c.Request.Context(), service.RegisterVehicleInput{
		Principal: principal,
		Matricule: req.Matricule,
		Type:      model.VehicleType(strings.ToUpper(strings.TrimSpace(req.Type))),
		MaxWeight: req.MaxWeight,
		MaxVolume: req.MaxVolume,
		State:     req.State,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

type updateVehicleRequest struct {
	Type      *string          `json:"type"`
	MaxWeight *decimal.Decimal `json:"max_weight"`
	MaxVolume *decimal.Decimal `json:"max_volume"`
	State     *string          `json:"state"`
}

func (h *Handler) updateVehicle(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req updateVehicleRequest
	if !h.bind(c, &req) {
		return
	}

	input := service.UpdateVehicleInput{
		Principal: principal,
		Matricule: c.Param("matricule"),
		MaxWeight: req.MaxWeight,
		MaxVolume: req.MaxVolume,
		State:     req.State,
	}
	if req.Type != nil {
		vehicleType := model.VehicleType(strings.ToUpper(strings.TrimSpace(*req.Type)))
		input.Type = &vehicleType
	}

	vehicle, err := h.svc.Fleet.UpdateVehicle(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

type registerDriverRequest struct {
	Code            string     `json:"code" binding:"required"`
	Name            string     `json:"name" binding:"required"`
	LicenseNumber   string     `json:"license_number" binding:"required"`
	LicenseCategory string     `json:"license_category" binding:"required"`
	AccountID       *uuid.UUID `json:"account_id"`
}

func (h *Handler) registerDriver(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req registerDriverRequest
	if !h.bind(c, &req) {
		return
	}

	driver, err := h.svc.Fleet.RegisterDriver(c.Request.Context(), service.RegisterDriverInput{
		Principal:       principal,
		Code:            req.Code,
		Name:            req.Name,
		LicenseNumber:   req.LicenseNumber,
		LicenseCategory: model.LicenseCategory(strings.ToUpper(strings.TrimSpace(req.LicenseCategory))),
		AccountID:       req.AccountID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

func (h *Handler) getDriver(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	driver, err := h.svc.Fleet.GetDriver(c.Request.Context(), service.DriverInput{Principal: principal, DriverCode: c.Param("code")})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

type createDestinationRequest struct {
	Code    string `json:"code" binding:"required"`
	City    string `json:"city" binding:"required"`
	Country string `json:"country"`
	Zone    string `json:"zone" binding:"required"`
}

func (h *Handler) createDestination(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createDestinationRequest
	if !h.bind(c, &req) {
		return
	}

	destination, err := h.svc.Reference.CreateDestination(c.Request.Context(), service.CreateDestinationInput{
		Principal: principal,
		Code:      req.Code,
		City:      req.City,
		Country:   req.Country,
		Zone:      model.Zone(strings.ToUpper(strings.TrimSpace(req.Zone))),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, destination)
}

type createTariffRequest struct {
	Code            string          `json:"code" binding:"required"`
	ServiceClass    string          `json:"service_class" binding:"required"`
	BaseRate        decimal.Decimal `json:"base_rate"`
	WeightRate      decimal.Decimal `json:"weight_rate"`
	VolumeRate      decimal.Decimal `json:"volume_rate"`
	DestinationCode string          `json:"destination_code" binding:"required"`
}

func (h *Handler) createTariff(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createTariffRequest
	if !h.bind(c, &req) {
		return
	}

	tariff, err := h.svc.Reference.CreateTariff(c.Request.Context(), service.CreateTariffInput{
		Principal:       principal,
		Code:            req.Code,
		ServiceClass:    model.ServiceClass(strings.ToUpper(strings.TrimSpace(req.ServiceClass))),
		BaseRate:        req.BaseRate,
		WeightRate:      req.WeightRate,
		VolumeRate:      req.VolumeRate,
		DestinationCode: req.DestinationCode,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tariff)
}
