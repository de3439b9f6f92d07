package admin_controller

import (
	"context"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/middlewares/auth"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/models/property_models"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/joy095/property-booking/utils/validation"
)

// AdminService is implemented by *Service.
type AdminService interface {
	SetStatus(ctx context.Context, id uuid.UUID, status, actorID string) (*booking_models.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*BookingDetail, error)
	CreateProperty(ctx context.Context, in PropertyInput) (*property_models.Property, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*property_models.Property, error)
}

type ConfirmBookingRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed cancelled"`
}

type CreatePropertyRequest struct {
	LandlordID   *string `json:"landlord_id" binding:"omitempty,uuid"`
	Title        string  `json:"title" binding:"required,max=200"`
	Address      *string `json:"address" binding:"omitempty,max=500"`
	City         *string `json:"city" binding:"omitempty,max=100"`
	PropertyType *string `json:"property_type" binding:"omitempty,max=50"`
	UnitPrice    float64 `json:"unit_price" binding:"required,gt=0"`
	Currency     string  `json:"currency" binding:"omitempty,len=3"`
}

type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

type AdminController struct {
	service         AdminService
	defaultCurrency string
}

func NewAdminController(service AdminService, defaultCurrency string) *AdminController {
	return &AdminController{service: service, defaultCurrency: defaultCurrency}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("INVALID_ID", "Invalid ID format", nil))
		return uuid.Nil, false
	}
	return id, true
}

// ConfirmBooking handles PUT /admin/bookings/:id/confirm.
func (ac *AdminController) ConfirmBooking(c *gin.Context) {
	logger.InfoLogger.Info("ConfirmBooking controller hit...")

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("VALIDATION_ERROR", "Invalid request body", validation.Details(err)))
		return
	}

	booking, err := ac.service.SetStatus(c.Request.Context(), id, req.Status, auth.ActorID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking status updated successfully",
		"booking": booking,
	})
}

// GetBooking handles GET /admin/bookings/:id.
func (ac *AdminController) GetBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	detail, err := ac.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateProperty handles POST /admin/properties.
func (ac *AdminController) CreateProperty(c *gin.Context) {
	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("VALIDATION_ERROR", "Invalid request body", validation.Details(err)))
		return
	}

	in := PropertyInput{
		Title:          req.Title,
		Address:        req.Address,
		City:           req.City,
		PropertyType:   req.PropertyType,
		UnitPriceCents: int64(math.Round(req.UnitPrice * 100)),
		Currency:       req.Currency,
	}
	if in.Currency == "" {
		in.Currency = ac.defaultCurrency
	}
	if req.LandlordID != nil {
		landlordID := uuid.MustParse(*req.LandlordID)
		in.LandlordID = &landlordID
	}

	p, err := ac.service.CreateProperty(c.Request.Context(), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"property": p})
}

// SetAvailability handles PATCH /admin/properties/:id/availability.
func (ac *AdminController) SetAvailability(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("VALIDATION_ERROR", "Invalid request body", validation.Details(err)))
		return
	}

	p, err := ac.service.SetAvailability(c.Request.Context(), id, *req.IsAvailable)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property": p})
}
