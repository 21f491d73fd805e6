package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewStaticTenantResolver(t *testing.T) {
	orgA, orgB := uuid.New(), uuid.New()

	tests := []struct {
		name     string
		bindings []TenantBinding
		wantErr  error
	}{
		{
			name: "valid",
			bindings: []TenantBinding{
				{Platform: integration.PlatformShopee, ShopID: "1", OrganizationID: orgA},
				{Platform: integration.PlatformMomo, ShopID: "1", OrganizationID: orgB},
			},
		},
		{
			name: "same binding twice is accepted",
			bindings: []TenantBinding{
				{Platform: integration.PlatformShopee, ShopID: "1", OrganizationID: orgA},
				{Platform: integration.PlatformShopee, ShopID: "1", OrganizationID: orgA},
			},
		},
		{
			name: "conflicting organizations",
			bindings: []TenantBinding{
				{Platform: integration.PlatformShopee, ShopID: "1", OrganizationID: orgA},
				{Platform: integration.PlatformShopee, ShopID: " 1 ", OrganizationID: orgB},
			},
			wantErr: integration.ErrConnectionAlreadyExists,
		},
		{
			name:     "invalid platform",
			bindings: []TenantBinding{{Platform: "ebay", ShopID: "1", OrganizationID: orgA}},
			wantErr:  integration.ErrPlatformNotSupported,
		},
		{
			name:     "empty shop",
			bindings: []TenantBinding{{Platform: integration.PlatformShopee, ShopID: " ", OrganizationID: orgA}},
			wantErr:  integration.ErrConnectionInvalidShopID,
		},
		{
			name:     "nil organization",
			bindings: []TenantBinding{{Platform: integration.PlatformShopee, ShopID: "1"}},
			wantErr:  integration.ErrInvalidOrganizationID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewStaticTenantResolver(tt.bindings)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, r)
		})
	}
}

func TestStaticTenantResolver_ResolveOrganization(t *testing.T) {
	orgA, orgB := uuid.New(), uuid.New()
	r, err := NewStaticTenantResolver([]TenantBinding{
		{Platform: integration.PlatformShopee, ShopID: "1", OrganizationID: orgA},
		{Platform: integration.PlatformMomo, ShopID: "1", OrganizationID: orgB},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	got, err := r.ResolveOrganization(context.Background(), integration.PlatformShopee, "1")
	require.NoError(t, err)
	assert.Equal(t, orgA, got)

	got, err = r.ResolveOrganization(context.Background(), integration.PlatformMomo, "1")
	require.NoError(t, err)
	assert.Equal(t, orgB, got)

	_, err = r.ResolveOrganization(context.Background(), integration.PlatformShopline, "1")
	assert.ErrorIs(t, err, integration.ErrTenantNotResolved)
}

func TestChainTenantResolver(t *testing.T) {
	orgID := uuid.New()
	static, err := NewStaticTenantResolver([]TenantBinding{
		{Platform: integration.PlatformShopee, ShopID: "1", OrganizationID: orgID},
	})
	require.NoError(t, err)

	t.Run("first resolver wins", func(t *testing.T) {
		second := new(MockTenantResolver)
		chain := NewChainTenantResolver(static, second)

		got, err := chain.ResolveOrganization(context.Background(), integration.PlatformShopee, "1")
		require.NoError(t, err)
		assert.Equal(t, orgID, got)
		second.AssertNotCalled(t, "ResolveOrganization", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("falls through on not resolved", func(t *testing.T) {
		other := uuid.New()
		second := new(MockTenantResolver)
		second.On("ResolveOrganization", mock.Anything, integration.PlatformShopee, "2").Return(other, nil)

		got, err := NewChainTenantResolver(static, second).ResolveOrganization(context.Background(), integration.PlatformShopee, "2")
		require.NoError(t, err)
		assert.Equal(t, other, got)
	})

	t.Run("store error stops the chain", func(t *testing.T) {
		boom := errors.New("connection reset")
		first := new(MockTenantResolver)
		first.On("ResolveOrganization", mock.Anything, mock.Anything, mock.Anything).Return(uuid.Nil, boom)

		_, err := NewChainTenantResolver(first, static).ResolveOrganization(context.Background(), integration.PlatformShopee, "1")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty shop is not resolved", func(t *testing.T) {
		_, err := NewChainTenantResolver(static).ResolveOrganization(context.Background(), integration.PlatformShopee, "")
		assert.ErrorIs(t, err, integration.ErrTenantNotResolved)
	})

	t.Run("no resolvers", func(t *testing.T) {
		_, err := NewChainTenantResolver().ResolveOrganization(context.Background(), integration.PlatformShopee, "1")
		assert.ErrorIs(t, err, integration.ErrTenantNotResolved)
	})
}
