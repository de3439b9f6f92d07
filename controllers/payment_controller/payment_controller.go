package payment_controller

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/joy095/property-booking/utils/validation"
)

const maxWebhookBody = 1 << 20

// PaymentService is implemented by *Service.
type PaymentService interface {
	CreateSession(ctx context.Context, bookingID uuid.UUID) (*SessionResult, error)
	HandleWebhook(ctx context.Context, provider string, payload []byte, header http.Header) error
}

type CreateSessionRequest struct {
	BookingID string `json:"booking_id" binding:"required,uuid"`
}

type PaymentController struct {
	service PaymentService
}

func NewPaymentController(service PaymentService) *PaymentController {
	return &PaymentController{service: service}
}

// CreateSession handles POST /stripe/create-session.
func (pc *PaymentController) CreateSession(c *gin.Context) {
	logger.InfoLogger.Info("CreateSession controller hit...")

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("VALIDATION_ERROR", "Invalid request body", validation.Details(err)))
		return
	}

	result, err := pc.service.CreateSession(c.Request.Context(), uuid.MustParse(req.BookingID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook returns the callback handler for provider. The body is read raw
// because the signature covers the exact bytes.
func (pc *PaymentController) Webhook(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			apperr.Respond(c, apperr.Validation("INVALID_PAYLOAD", "Failed to read request body", nil))
			return
		}

		if err := pc.service.HandleWebhook(c.Request.Context(), provider, payload, c.Request.Header); err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
