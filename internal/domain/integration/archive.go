package integration

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ArchivedPayload is the raw form of an authenticated delivery kept for replay
// and audit
type ArchivedPayload struct {
	Platform     Platform          `json:"platform"`
	RequestID    string            `json:"request_id,omitempty"`
	ReceivedAt   time.Time         `json:"received_at"`
	Verification VerifyOutcome     `json:"verification"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         []byte            `json:"body"`
}

// NewArchivedPayload captures req after verification
func NewArchivedPayload(req WebhookRequest, verification VerifyOutcome, requestID string) ArchivedPayload {
	headers := make(map[string]string, len(req.Headers))
	for name, values := range req.Headers {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	return ArchivedPayload{
		Platform:     req.Platform,
		RequestID:    requestID,
		ReceivedAt:   receivedAt.UTC(),
		Verification: verification,
		Headers:      headers,
		Body:         req.Body,
	}
}

// ObjectKey returns the storage key of the payload:
// <platform>/<yyyy>/<mm>/<dd>/<unix nanos>[-<request id>].json
func (p ArchivedPayload) ObjectKey() string {
	t := p.ReceivedAt.UTC()
	name := fmt.Sprintf("%d", t.UnixNano())
	if id := strings.TrimSpace(p.RequestID); id != "" {
		name += "-" + strings.ReplaceAll(id, "/", "_")
	}
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.json", p.Platform, t.Year(), int(t.Month()), t.Day(), name)
}

// PayloadArchive stores raw deliveries. Failures never affect the response
// to the platform.
type PayloadArchive interface {
	Archive(ctx context.Context, payload ArchivedPayload) error
}
