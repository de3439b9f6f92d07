package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// CRMClient posts JSON events to the CRM's inbound webhook.
type CRMClient struct {
	URL        string
	Secret     string
	HTTPClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewCRMClient creates a client whose requests never outlive timeout.
func NewCRMClient(url, secret string, timeout time.Duration) *CRMClient {
	return &CRMClient{
		URL:        url,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: timeout},
		breaker:    newBreaker("crm", 30*time.Second),
	}
}

// Sign returns the hex HMAC-SHA256 of body sent in X-Signature.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Post sends payload as JSON. Any non-2xx answer is an error.
func (c *CRMClient) Post(ctx context.Context, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal crm payload: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.Secret != "" {
			req.Header.Set("X-Signature", Sign(jsonData, c.Secret))
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("crm returned %d: %s", resp.StatusCode, bytes.TrimSpace(b))
		}
		return nil, nil
	})
	return err
}
