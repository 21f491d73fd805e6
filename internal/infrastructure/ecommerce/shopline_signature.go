package ecommerce

import (
	"crypto/hmac"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/erp/commercesync/internal/domain/integration"
)

// Shopline webhook headers
const (
	ShoplineSignatureHeader = "X-Shopline-Hmac-Sha256"
	ShoplineTopicHeader     = "X-Shopline-Topic"
	ShoplineStoreIDHeader   = "X-Shopline-Store-Id"
)

// ShoplineScheme signs base64(HMAC-SHA256(secret, body))
type ShoplineScheme struct{}

// Platform returns PlatformShopline
func (ShoplineScheme) Platform() integration.Platform {
	return integration.PlatformShopline
}

// SignatureFrom reads the X-Shopline-Hmac-Sha256 header
func (ShoplineScheme) SignatureFrom(headers http.Header, _ []byte) string {
	return strings.TrimSpace(headers.Get(ShoplineSignatureHeader))
}

// Sign computes the signature over the raw body
func (ShoplineScheme) Sign(body []byte, secret string) (string, error) {
	return base64.StdEncoding.EncodeToString(hmacSHA256([]byte(secret), body)), nil
}

// Verify compares the base64 signature in constant time
func (ShoplineScheme) Verify(body []byte, signature, secret string) bool {
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, hmacSHA256([]byte(secret), body))
}
