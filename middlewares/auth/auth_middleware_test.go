package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joy095/property-booking/utils/jwt_parse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", AdminMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": ActorID(c)})
	})
	return r
}

func request(t *testing.T, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, "/admin/ping", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, req)
	return w
}

func TestAdminMiddleware(t *testing.T) {
	adminToken, err := jwt_parse.IssueToken(secret, "admin-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	userToken, err := jwt_parse.IssueToken(secret, "user-1", "contractor", time.Hour)
	require.NoError(t, err)
	expired, err := jwt_parse.IssueToken(secret, "admin-1", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	foreign, err := jwt_parse.IssueToken([]byte("other"), "admin-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "admin-1", "role": RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"admin", "Bearer " + adminToken, http.StatusOK},
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + adminToken, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"alg none", "Bearer " + none, http.StatusUnauthorized},
		{"not admin", "Bearer " + userToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(t, tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"actor":"admin-1"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}
