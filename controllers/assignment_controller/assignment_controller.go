package assignment_controller

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/joy095/property-booking/utils/validation"
)

// AssignmentService is implemented by *Service.
type AssignmentService interface {
	Assign(ctx context.Context, in AssignInput) (*booking_models.Booking, error)
}

// PropertyAssignmentRequest fields are checked by hand so every missing
// name is reported at once under MISSING_FIELDS.
type PropertyAssignmentRequest struct {
	BookingDateID   string  `json:"booking_date_id"`
	PropertyID      string  `json:"property_id"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	ContractorEmail string  `json:"contractor_email" binding:"omitempty,email"`
	LandlordEmail   string  `json:"landlord_email" binding:"omitempty,email"`
	ContractorName  *string `json:"contractor_name" binding:"omitempty,max=200"`
	LandlordName    *string `json:"landlord_name" binding:"omitempty,max=200"`
	PropertyTitle   *string `json:"property_title" binding:"omitempty,max=200"`
}

type DirectBookingRequest struct {
	PropertyID      string `json:"property_id"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	ContractorEmail string `json:"contractor_email" binding:"omitempty,email"`
}

type AssignmentController struct {
	service AssignmentService
}

func NewAssignmentController(service AssignmentService) *AssignmentController {
	return &AssignmentController{service: service}
}

// AssignProperty handles POST /property-assignment.
func (ac *AssignmentController) AssignProperty(c *gin.Context) {
	logger.InfoLogger.Info("AssignProperty controller hit...")

	var req PropertyAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("VALIDATION_ERROR", "Invalid request body", validation.Details(err)))
		return
	}

	if missing := missingFields(map[string]string{
		"booking_date_id": req.BookingDateID,
		"property_id":     req.PropertyID,
		"start_date":      req.StartDate,
		"end_date":        req.EndDate,
	}, "booking_date_id", "property_id", "start_date", "end_date"); len(missing) > 0 {
		apperr.Respond(c, apperr.Validation("MISSING_FIELDS", "Missing required fields", missing))
		return
	}

	dateID, err := uuid.Parse(req.BookingDateID)
	if err != nil {
		apperr.Respond(c, apperr.Validation("INVALID_ID", "Invalid booking_date_id format", nil))
		return
	}
	propertyID, r, ok := parseTarget(c, req.PropertyID, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	booking, err := ac.service.Assign(c.Request.Context(), AssignInput{
		BookingDateID:   &dateID,
		PropertyID:      propertyID,
		Range:           r,
		ContractorEmail: req.ContractorEmail,
		LandlordEmail:   req.LandlordEmail,
		ContractorName:  req.ContractorName,
		LandlordName:    req.LandlordName,
		PropertyTitle:   req.PropertyTitle,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Property assigned successfully",
		"assignment": booking,
	})
}

// CreateDirectBooking handles POST /bookings.
func (ac *AssignmentController) CreateDirectBooking(c *gin.Context) {
	logger.InfoLogger.Info("CreateDirectBooking controller hit...")

	var req DirectBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("VALIDATION_ERROR", "Invalid request body", validation.Details(err)))
		return
	}

	if missing := missingFields(map[string]string{
		"property_id": req.PropertyID,
		"start_date":  req.StartDate,
		"end_date":    req.EndDate,
	}, "property_id", "start_date", "end_date"); len(missing) > 0 {
		apperr.Respond(c, apperr.Validation("MISSING_FIELDS", "Missing required fields", missing))
		return
	}

	propertyID, r, ok := parseTarget(c, req.PropertyID, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	booking, err := ac.service.Assign(c.Request.Context(), AssignInput{
		PropertyID:      propertyID,
		Range:           r,
		ContractorEmail: req.ContractorEmail,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Booking created successfully",
		"booking": booking,
	})
}

func missingFields(values map[string]string, order ...string) []string {
	var missing []string
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// parseTarget writes the 400 response itself and reports false on failure.
func parseTarget(c *gin.Context, propertyID, start, end string) (uuid.UUID, booking_models.DateRange, bool) {
	id, err := uuid.Parse(propertyID)
	if err != nil {
		apperr.Respond(c, apperr.Validation("INVALID_ID", "Invalid property_id format", nil))
		return uuid.Nil, booking_models.DateRange{}, false
	}
	r, err := booking_models.NewDateRange(start, end)
	if err != nil {
		apperr.Respond(c, apperr.Validation("INVALID_DATE_RANGE", "Invalid date range", map[string]string{"dates": err.Error()}))
		return uuid.Nil, booking_models.DateRange{}, false
	}
	return id, r, true
}
