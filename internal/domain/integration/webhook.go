package integration

import (
	"net/http"
	"time"
)

// WebhookRequest is one raw webhook delivery as received over HTTP
type WebhookRequest struct {
	Platform   Platform
	Body       []byte
	Headers    http.Header
	ReceivedAt time.Time
}

// Header returns the first value of the named header
func (r WebhookRequest) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// VerifyOutcome reports how a delivery passed signature verification
type VerifyOutcome string

const (
	// VerifyOutcomeVerified means the signature matched the configured secret
	VerifyOutcomeVerified VerifyOutcome = "verified"
	// VerifyOutcomeSkipped means no secret is configured and the check did not run
	VerifyOutcomeSkipped VerifyOutcome = "skipped"
)

// String returns the string representation of VerifyOutcome
func (o VerifyOutcome) String() string {
	return string(o)
}

// WebhookVerifier authenticates raw deliveries.
// It returns ErrSignatureInvalid when a secret is configured and the signature
// is missing or does not match.
type WebhookVerifier interface {
	VerifyRequest(req WebhookRequest) (VerifyOutcome, error)
}

// EventNormalizer converts a raw delivery into a SyncEvent.
// Errors are always *NormalizationError or ErrPlatformNotSupported.
type EventNormalizer interface {
	Normalize(req WebhookRequest) (*SyncEvent, error)
}
