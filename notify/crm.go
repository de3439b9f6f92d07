package notify

import (
	"context"

	"github.com/joy095/property-booking/clients"
)

// CRMSink posts events to the CRM webhook.
type CRMSink struct {
	client *clients.CRMClient
}

func NewCRMSink(client *clients.CRMClient) *CRMSink {
	return &CRMSink{client: client}
}

func (s *CRMSink) Name() string { return "crm" }

func (s *CRMSink) Send(ctx context.Context, evt Event) error {
	return s.client.Post(ctx, evt)
}
