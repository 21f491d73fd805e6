package ecommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"

	"github.com/erp/commercesync/internal/domain/integration"
	"go.uber.org/zap"
)

// SignatureScheme authenticates webhook deliveries of one platform.
// New platforms are added by implementing this interface.
type SignatureScheme interface {
	// Platform returns the platform the scheme belongs to
	Platform() integration.Platform

	// SignatureFrom extracts the delivered signature from headers or body
	SignatureFrom(headers http.Header, body []byte) string

	// Verify reports whether signature authenticates body under secret.
	// Comparison is constant time.
	Verify(body []byte, signature, secret string) bool

	// Sign computes the signature the platform would deliver for body
	Sign(body []byte, secret string) (string, error)
}

// DefaultSchemes returns the schemes of every webhook-capable platform
func DefaultSchemes() []SignatureScheme {
	return []SignatureScheme{
		ShopeeScheme{},
		MomoScheme{},
		ShoplineScheme{},
	}
}

// hmacSHA256 returns the raw HMAC-SHA256 of msg under key
func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// ---------------------------------------------------------------------------
// SignatureVerifier
// ---------------------------------------------------------------------------

// SignatureVerifier selects the scheme and secret of a delivery's platform.
// A platform with an empty secret is accepted unverified and every such
// delivery is logged as a warning.
type SignatureVerifier struct {
	schemes map[integration.Platform]SignatureScheme
	secrets map[integration.Platform]string
	logger  *zap.Logger
}

// NewSignatureVerifier creates a verifier. When no schemes are given,
// DefaultSchemes is used.
func NewSignatureVerifier(secrets map[integration.Platform]string, logger *zap.Logger, schemes ...SignatureScheme) *SignatureVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(schemes) == 0 {
		schemes = DefaultSchemes()
	}
	v := &SignatureVerifier{
		schemes: make(map[integration.Platform]SignatureScheme, len(schemes)),
		secrets: make(map[integration.Platform]string, len(secrets)),
		logger:  logger,
	}
	for _, s := range schemes {
		v.schemes[s.Platform()] = s
	}
	for p, secret := range secrets {
		v.secrets[p] = secret
	}
	return v
}

// HasSecret returns true if a secret is configured for the platform
func (v *SignatureVerifier) HasSecret(platform integration.Platform) bool {
	return v.secrets[platform] != ""
}

// Verify checks signature against body for the platform
func (v *SignatureVerifier) Verify(platform integration.Platform, body []byte, signature string) (integration.VerifyOutcome, error) {
	scheme, ok := v.schemes[platform]
	if !ok {
		return "", integration.ErrPlatformNotSupported
	}

	secret := v.secrets[platform]
	if secret == "" {
		v.logger.Warn("Webhook signature verification skipped, no secret configured",
			zap.String("platform", platform.String()),
		)
		return integration.VerifyOutcomeSkipped, nil
	}

	if signature == "" || !scheme.Verify(body, signature, secret) {
		v.logger.Warn("Webhook signature verification failed",
			zap.String("platform", platform.String()),
			zap.Bool("signature_present", signature != ""),
		)
		return "", integration.ErrSignatureInvalid
	}
	return integration.VerifyOutcomeVerified, nil
}

// VerifyRequest extracts the signature of the delivery and verifies it
func (v *SignatureVerifier) VerifyRequest(req integration.WebhookRequest) (integration.VerifyOutcome, error) {
	scheme, ok := v.schemes[req.Platform]
	if !ok {
		return "", integration.ErrPlatformNotSupported
	}
	return v.Verify(req.Platform, req.Body, scheme.SignatureFrom(req.Headers, req.Body))
}

var _ integration.WebhookVerifier = (*SignatureVerifier)(nil)
