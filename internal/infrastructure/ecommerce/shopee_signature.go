package ecommerce

import (
	"crypto/hmac"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/erp/commercesync/internal/domain/integration"
)

// ShopeeSignatureHeader carries the delivery signature
const ShopeeSignatureHeader = "Authorization"

// ShopeeScheme signs hex(HMAC-SHA256(partnerKey, partnerKey + body))
type ShopeeScheme struct{}

// Platform returns PlatformShopee
func (ShopeeScheme) Platform() integration.Platform {
	return integration.PlatformShopee
}

// SignatureFrom reads the Authorization header
func (ShopeeScheme) SignatureFrom(headers http.Header, _ []byte) string {
	return strings.TrimSpace(headers.Get(ShopeeSignatureHeader))
}

// Sign computes the signature for body under the partner key
func (ShopeeScheme) Sign(body []byte, partnerKey string) (string, error) {
	return hex.EncodeToString(shopeeMAC(body, partnerKey)), nil
}

// Verify compares the hex signature in constant time
func (ShopeeScheme) Verify(body []byte, signature, partnerKey string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, shopeeMAC(body, partnerKey))
}

func shopeeMAC(body []byte, partnerKey string) []byte {
	msg := make([]byte, 0, len(partnerKey)+len(body))
	msg = append(msg, partnerKey...)
	msg = append(msg, body...)
	return hmacSHA256([]byte(partnerKey), msg)
}
