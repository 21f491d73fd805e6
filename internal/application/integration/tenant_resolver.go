package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
)

// TenantBinding maps one platform shop to an organization
type TenantBinding struct {
	Platform       integration.Platform
	ShopID         string
	OrganizationID uuid.UUID
}

// StaticTenantResolver resolves organizations from a fixed table
type StaticTenantResolver struct {
	bindings map[string]uuid.UUID
}

// NewStaticTenantResolver creates a resolver from bindings.
// A shop bound to two different organizations is rejected.
func NewStaticTenantResolver(bindings []TenantBinding) (*StaticTenantResolver, error) {
	r := &StaticTenantResolver{bindings: make(map[string]uuid.UUID, len(bindings))}
	for _, b := range bindings {
		if !b.Platform.IsValid() {
			return nil, fmt.Errorf("tenant binding %q: %w", b.ShopID, integration.ErrPlatformNotSupported)
		}
		if strings.TrimSpace(b.ShopID) == "" {
			return nil, integration.ErrConnectionInvalidShopID
		}
		if b.OrganizationID == uuid.Nil {
			return nil, integration.ErrInvalidOrganizationID
		}
		key := bindingKey(b.Platform, b.ShopID)
		if existing, ok := r.bindings[key]; ok && existing != b.OrganizationID {
			return nil, fmt.Errorf("tenant binding %s/%s: %w", b.Platform, b.ShopID, integration.ErrConnectionAlreadyExists)
		}
		r.bindings[key] = b.OrganizationID
	}
	return r, nil
}

// ResolveOrganization implements integration.TenantResolver
func (r *StaticTenantResolver) ResolveOrganization(_ context.Context, platform integration.Platform, shopID string) (uuid.UUID, error) {
	if orgID, ok := r.bindings[bindingKey(platform, shopID)]; ok {
		return orgID, nil
	}
	return uuid.Nil, integration.ErrTenantNotResolved
}

// Len returns the number of bindings
func (r *StaticTenantResolver) Len() int {
	return len(r.bindings)
}

func bindingKey(platform integration.Platform, shopID string) string {
	return string(platform) + "|" + strings.TrimSpace(shopID)
}

// ChainTenantResolver asks each resolver in order until one resolves the shop.
// Errors other than ErrTenantNotResolved stop the chain.
type ChainTenantResolver struct {
	resolvers []integration.TenantResolver
}

// NewChainTenantResolver creates a new ChainTenantResolver
func NewChainTenantResolver(resolvers ...integration.TenantResolver) *ChainTenantResolver {
	return &ChainTenantResolver{resolvers: resolvers}
}

// ResolveOrganization implements integration.TenantResolver
func (c *ChainTenantResolver) ResolveOrganization(ctx context.Context, platform integration.Platform, shopID string) (uuid.UUID, error) {
	if strings.TrimSpace(shopID) == "" {
		return uuid.Nil, integration.ErrTenantNotResolved
	}
	for _, r := range c.resolvers {
		orgID, err := r.ResolveOrganization(ctx, platform, shopID)
		if err == nil {
			return orgID, nil
		}
		if !errors.Is(err, integration.ErrTenantNotResolved) {
			return uuid.Nil, err
		}
	}
	return uuid.Nil, integration.ErrTenantNotResolved
}

var (
	_ integration.TenantResolver = (*StaticTenantResolver)(nil)
	_ integration.TenantResolver = (*ChainTenantResolver)(nil)
)
