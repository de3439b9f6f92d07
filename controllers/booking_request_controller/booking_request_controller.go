package booking_request_controller

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/joy095/property-booking/utils/validation"
)

// BookingRequestService is implemented by *Service.
type BookingRequestService interface {
	Create(ctx context.Context, in CreateInput) (*Created, error)
	Get(ctx context.Context, id uuid.UUID) (*booking_models.BookingRequest, error)
}

type DateRangeInput struct {
	StartDate string `json:"startDate" binding:"required,ymd"`
	EndDate   string `json:"endDate" binding:"required,ymd"`
}

type CreateBookingRequestRequest struct {
	Email     string           `json:"email" binding:"required,email"`
	FirstName string           `json:"first_name" binding:"required,max=100"`
	LastName  string           `json:"last_name" binding:"required,max=100"`
	Phone     string           `json:"phone" binding:"required,max=32"`
	Company   *string          `json:"company" binding:"omitempty,max=200"`
	Password  string           `json:"password" binding:"required,min=8,max=128"`
	TeamSize  int              `json:"team_size" binding:"required,min=1"`
	Budget    *float64         `json:"budget" binding:"omitempty,min=0"`
	Notes     *string          `json:"notes" binding:"omitempty,max=2000"`
	Bookings  []DateRangeInput `json:"bookings" binding:"required,min=1,dive"`
}

type BookingRequestController struct {
	service BookingRequestService
}

func NewBookingRequestController(service BookingRequestService) *BookingRequestController {
	return &BookingRequestController{service: service}
}

// CreateBookingRequest handles POST /booking-requests.
func (bc *BookingRequestController) CreateBookingRequest(c *gin.Context) {
	logger.InfoLogger.Info("CreateBookingRequest controller hit...")

	var req CreateBookingRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("VALIDATION_ERROR", "Invalid request body", validation.Details(err)))
		return
	}

	// One bad pair rejects the whole batch.
	ranges := make([]booking_models.DateRange, 0, len(req.Bookings))
	details := map[string]string{}
	for i, b := range req.Bookings {
		r, err := booking_models.NewDateRange(b.StartDate, b.EndDate)
		if err == nil && !r.Start.Before(r.End.Time) {
			err = fmt.Errorf("startDate must be before endDate")
		}
		if err != nil {
			details[fmt.Sprintf("bookings[%d]", i)] = err.Error()
			continue
		}
		ranges = append(ranges, r)
	}
	if len(details) > 0 {
		apperr.Respond(c, apperr.Validation("INVALID_DATE_RANGE", "One or more booking date ranges are invalid", details))
		return
	}

	in := CreateInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     &req.Phone,
		Company:   req.Company,
		Password:  req.Password,
		TeamSize:  req.TeamSize,
		Notes:     req.Notes,
		Ranges:    ranges,
	}
	if req.Budget != nil {
		cents := int64(math.Round(*req.Budget * 100))
		in.BudgetCents = &cents
	}

	created, err := bc.service.Create(c.Request.Context(), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":         "Booking request created successfully",
		"contractor":      created.Contractor,
		"booking_request": created.BookingRequest,
	})
}

// GetBookingRequest handles GET /booking-requests/:id.
func (bc *BookingRequestController) GetBookingRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("INVALID_ID", "Invalid booking request ID format", nil))
		return
	}

	req, err := bc.service.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_request": req})
}
