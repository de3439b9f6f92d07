package clients

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joy095/property-booking/logger"
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/sony/gobreaker"
)

// paymentLinks is the part of the Razorpay SDK the gateway uses.
type paymentLinks interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway opens Razorpay payment links and verifies
// X-Razorpay-Signature headers.
type RazorpayGateway struct {
	links         paymentLinks
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker
}

var _ PaymentGateway = (*RazorpayGateway)(nil)

// NewRazorpayGateway initializes the SDK client with the key pair.
func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return newRazorpayGateway(client.PaymentLink, webhookSecret)
}

func newRazorpayGateway(links paymentLinks, webhookSecret string) *RazorpayGateway {
	return &RazorpayGateway{
		links:         links,
		webhookSecret: webhookSecret,
		breaker:       newBreaker("razorpay", 30*time.Second),
	}
}

func (g *RazorpayGateway) Provider() string { return ProviderRazorpay }

// CreateSession creates a payment link whose reference_id is the booking id.
// The SDK takes no context, so cancellation is only checked up front.
func (g *RazorpayGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bookingID := req.BookingID.String()
	data := map[string]interface{}{
		"amount":          req.AmountCents,
		"currency":        strings.ToUpper(req.Currency),
		"reference_id":    bookingID,
		"description":     req.Description,
		"callback_url":    req.SuccessURL,
		"callback_method": "get",
		"notes": map[string]interface{}{
			"booking_id": bookingID,
		},
	}
	if req.CustomerEmail != "" {
		data["customer"] = map[string]interface{}{"email": req.CustomerEmail}
		data["notify"] = map[string]interface{}{"email": true}
	}

	logger.InfoLogger.Infof("Creating Razorpay payment link for booking %s (%d %s)", bookingID, req.AmountCents, req.Currency)

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.links.Create(data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay payment link: %w", err)
	}

	link := res.(map[string]interface{})
	id, _ := link["id"].(string)
	url, _ := link["short_url"].(string)
	if id == "" || url == "" {
		return nil, fmt.Errorf("razorpay payment link response missing id or short_url")
	}
	return &Session{ID: id, URL: url, Provider: ProviderRazorpay}, nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink struct {
			Entity struct {
				ID          string `json:"id"`
				ReferenceID string `json:"reference_id"`
				Status      string `json:"status"`
			} `json:"entity"`
		} `json:"payment_link"`
	} `json:"payload"`
}

func (g *RazorpayGateway) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	sig := header.Get("X-Razorpay-Signature")
	if sig == "" {
		return nil, fmt.Errorf("%w: missing X-Razorpay-Signature header", ErrInvalidSignature)
	}
	if !utils.VerifyWebhookSignature(string(payload), sig, g.webhookSecret) {
		return nil, ErrInvalidSignature
	}

	var body razorpayWebhook
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	// Razorpay sends the event id as a header only; fall back to the body
	// digest so redeliveries still deduplicate.
	id := header.Get("X-Razorpay-Event-Id")
	if id == "" {
		sum := sha256.Sum256(payload)
		id = "rzp_" + hex.EncodeToString(sum[:])
	}

	evt := &WebhookEvent{
		ID:       id,
		Provider: ProviderRazorpay,
		RawType:  body.Event,
		Type:     EventIgnored,
		Payload:  payload,
	}

	switch body.Event {
	case "payment_link.paid":
		evt.Type = EventSessionCompleted
	case "payment_link.expired", "payment_link.cancelled":
		evt.Type = EventSessionExpired
	default:
		return evt, nil
	}

	entity := body.Payload.PaymentLink.Entity
	if entity.ID == "" {
		return nil, fmt.Errorf("%w: payment link id missing", ErrMalformedEvent)
	}
	evt.SessionID = entity.ID
	evt.BookingID = entity.ReferenceID
	return evt, nil
}
