package assignment_controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/joy095/property-booking/utils/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Assign(ctx context.Context, in AssignInput) (*booking_models.Booking, error) {
	args := m.Called(ctx, in)
	b, _ := args.Get(0).(*booking_models.Booking)
	return b, args.Error(1)
}

func setupRouter(svc AssignmentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.Register()

	r := gin.New()
	ctrl := NewAssignmentController(svc)
	r.POST("/property-assignment", ctrl.AssignProperty)
	r.POST("/bookings", ctrl.CreateDirectBooking)
	return r
}

func post(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAssignProperty(t *testing.T) {
	dateID := uuid.New()
	propertyID := uuid.New()
	payload := map[string]interface{}{
		"booking_date_id":  dateID.String(),
		"property_id":      propertyID.String(),
		"start_date":       "2024-03-01",
		"end_date":         "2024-03-10",
		"contractor_email": "crew@example.com",
	}

	t.Run("Created", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Assign", mock.Anything, mock.MatchedBy(func(in AssignInput) bool {
			return *in.BookingDateID == dateID && in.PropertyID == propertyID &&
				in.Range.Nights() == 9 && in.ContractorEmail == "crew@example.com"
		})).Return(&booking_models.Booking{ID: uuid.New(), Kind: booking_models.KindAssignment}, nil)

		w := post(setupRouter(svc), "/property-assignment", payload)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, decode(t, w), "assignment")
		svc.AssertExpectations(t)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := &mockService{}
		w := post(setupRouter(svc), "/property-assignment", map[string]string{"property_id": propertyID.String()})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "MISSING_FIELDS", body["code"])
		assert.Equal(t, []interface{}{"booking_date_id", "start_date", "end_date"}, body["details"])
		svc.AssertNotCalled(t, "Assign", mock.Anything, mock.Anything)
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		bad := map[string]interface{}{}
		for k, v := range payload {
			bad[k] = v
		}
		bad["end_date"] = "2024-02-01"

		w := post(setupRouter(&mockService{}), "/property-assignment", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_DATE_RANGE", decode(t, w)["code"])
	})

	t.Run("Conflict", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Assign", mock.Anything, mock.Anything).Return(nil, apperr.Conflict("DATE_CONFLICT", "Property is already booked from 2024-01-10–2024-01-15",
			map[string]string{"start_date": "2024-01-10", "end_date": "2024-01-15"}))

		w := post(setupRouter(svc), "/property-assignment", payload)

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decode(t, w)
		assert.Equal(t, "DATE_CONFLICT", body["code"])
		details := body["details"].(map[string]interface{})
		assert.Equal(t, "2024-01-10", details["start_date"])
		assert.Equal(t, "2024-01-15", details["end_date"])
	})
}

func TestCreateDirectBooking(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Assign", mock.Anything, mock.MatchedBy(func(in AssignInput) bool {
			return in.BookingDateID == nil
		})).Return(&booking_models.Booking{ID: uuid.New(), Kind: booking_models.KindDirect}, nil)

		w := post(setupRouter(svc), "/bookings", map[string]string{
			"property_id": uuid.NewString(),
			"start_date":  "2024-05-01",
			"end_date":    "2024-05-01",
		})
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("InvalidPropertyID", func(t *testing.T) {
		w := post(setupRouter(&mockService{}), "/bookings", map[string]string{
			"property_id": "abc",
			"start_date":  "2024-05-01",
			"end_date":    "2024-05-02",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_ID", decode(t, w)["code"])
	})
}
