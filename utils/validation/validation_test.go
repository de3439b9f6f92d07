package validation

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: " 2024-03-10 ", want: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{in: "2024-03-01T18:30:00Z", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "", wantErr: true},
		{in: "03/01/2024", wantErr: true},
		{in: "2024-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDetailsUsesJSONNames(t *testing.T) {
	Register()

	type dateRange struct {
		StartDate string `json:"startDate" binding:"required,ymd"`
	}
	type payload struct {
		Email    string      `json:"email" binding:"required,email"`
		Bookings []dateRange `json:"bookings" binding:"required,dive"`
	}

	err := binding.Validator.ValidateStruct(&payload{
		Email:    "not-an-email",
		Bookings: []dateRange{{StartDate: "tomorrow"}},
	})
	require.Error(t, err)

	details := Details(err)
	assert.Equal(t, "must be a valid email address", details["email"])
	assert.Equal(t, "must be a date in YYYY-MM-DD format", details["bookings[0].startDate"])
}
