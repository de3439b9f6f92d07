package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("MISSING_FIELDS", "missing", nil), http.StatusBadRequest},
		{"signature", Auth("INVALID_SIGNATURE", "bad signature"), http.StatusBadRequest},
		{"not found", NotFound("BOOKING_NOT_FOUND", "nope"), http.StatusNotFound},
		{"conflict", Conflict("DATE_CONFLICT", "taken", nil), http.StatusConflict},
		{"upstream", Upstream("db down", errors.New("boom")), http.StatusInternalServerError},
		{"bad gateway", BadGateway("PAYMENT_PROVIDER_ERROR", "stripe down", nil), http.StatusBadGateway},
		{"unauthorized", Unauthorized("NO_TOKEN", "no token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("ADMIN_REQUIRED", "admins only"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Status())
		})
	}
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("WrappedAppErrorKeepsDetails", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/property-assignment", nil)

		details := map[string]string{"start_date": "2024-01-10", "end_date": "2024-01-15"}
		Respond(c, fmt.Errorf("assign: %w", Conflict("DATE_CONFLICT", "Property is already booked", details)))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"error":"Property is already booked","code":"DATE_CONFLICT","details":{"start_date":"2024-01-10","end_date":"2024-01-15"}}`, w.Body.String())
		assert.True(t, c.IsAborted())
	})

	t.Run("PlainErrorIsSanitised", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		Respond(c, errors.New("pq: password authentication failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	})
}
