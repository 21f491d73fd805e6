package ecommerce

import (
	"github.com/erp/commercesync/internal/domain/integration"
)

// PlatformNormalizer normalizes the deliveries of one platform
type PlatformNormalizer interface {
	Platform() integration.Platform
	Normalize(req integration.WebhookRequest) (*integration.SyncEvent, error)
}

// PayloadNormalizer routes a delivery to the normalizer of its platform
type PayloadNormalizer struct {
	normalizers map[integration.Platform]PlatformNormalizer
}

// NewPayloadNormalizer creates a PayloadNormalizer. When none are given, the
// Shopee, momo and Shopline normalizers are registered.
func NewPayloadNormalizer(normalizers ...PlatformNormalizer) *PayloadNormalizer {
	if len(normalizers) == 0 {
		normalizers = []PlatformNormalizer{ShopeeNormalizer{}, MomoNormalizer{}, ShoplineNormalizer{}}
	}
	n := &PayloadNormalizer{normalizers: make(map[integration.Platform]PlatformNormalizer, len(normalizers))}
	for _, pn := range normalizers {
		n.normalizers[pn.Platform()] = pn
	}
	return n
}

// Normalize converts the delivery into a SyncEvent
func (n *PayloadNormalizer) Normalize(req integration.WebhookRequest) (*integration.SyncEvent, error) {
	pn, ok := n.normalizers[req.Platform]
	if !ok {
		return nil, integration.ErrPlatformNotSupported
	}
	return pn.Normalize(req)
}

var _ integration.EventNormalizer = (*PayloadNormalizer)(nil)
