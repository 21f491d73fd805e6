package main

import (
	"context"
	"testing"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memoryConnections struct {
	rows map[string]integration.PlatformConnection
}

func newMemoryConnections() *memoryConnections {
	return &memoryConnections{rows: make(map[string]integration.PlatformConnection)}
}

func (m *memoryConnections) Save(_ context.Context, conn *integration.PlatformConnection) error {
	key := string(conn.Platform) + "/" + conn.ShopID
	if existing, ok := m.rows[key]; ok && existing.OrganizationID != conn.OrganizationID {
		return integration.ErrConnectionAlreadyExists
	}
	m.rows[key] = *conn
	return nil
}

func (m *memoryConnections) FindByShop(_ context.Context, platform integration.Platform, shopID string) (*integration.PlatformConnection, error) {
	conn, ok := m.rows[string(platform)+"/"+shopID]
	if !ok {
		return nil, integration.ErrConnectionNotFound
	}
	return &conn, nil
}

func (m *memoryConnections) FindByOrganization(_ context.Context, orgID uuid.UUID) ([]integration.PlatformConnection, error) {
	var conns []integration.PlatformConnection
	for _, c := range m.rows {
		if c.OrganizationID == orgID {
			conns = append(conns, c)
		}
	}
	return conns, nil
}

func TestConnectionCommands(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryConnections()
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	orgID := uuid.New()

	require.NoError(t, connect(ctx, repo, log, []string{"Shopee", "123", orgID.String(), "Main store"}))
	conn, err := repo.FindByShop(ctx, integration.PlatformShopee, "123")
	require.NoError(t, err)
	assert.True(t, conn.IsConnected)
	assert.Equal(t, "Main store", conn.ShopName)

	t.Run("shop of another organization", func(t *testing.T) {
		err := connect(ctx, repo, log, []string{"shopee", "123", uuid.NewString()})
		assert.ErrorIs(t, err, integration.ErrConnectionAlreadyExists)
	})

	t.Run("disconnect", func(t *testing.T) {
		require.NoError(t, disconnect(ctx, repo, log, []string{"shopee", "123"}))
		conn, err := repo.FindByShop(ctx, integration.PlatformShopee, "123")
		require.NoError(t, err)
		assert.False(t, conn.IsConnected)
		assert.Equal(t, orgID, conn.OrganizationID)

		require.NoError(t, disconnect(ctx, repo, log, []string{"shopee", "123"}))
		assert.Equal(t, 1, logs.FilterMessage("Platform connection already disconnected").Len())
	})

	t.Run("reconnect", func(t *testing.T) {
		require.NoError(t, connect(ctx, repo, log, []string{"shopee", "123", orgID.String()}))
		conn, err := repo.FindByShop(ctx, integration.PlatformShopee, "123")
		require.NoError(t, err)
		assert.True(t, conn.IsConnected)
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, connect(ctx, repo, log, []string{"momo", "M1", orgID.String()}))
		require.NoError(t, listConnections(ctx, repo, log, []string{orgID.String()}))

		listed := logs.FilterMessage("Platform connections listed").All()
		require.Len(t, listed, 1)
		assert.Equal(t, int64(2), listed[0].ContextMap()["count"])
	})
}

func TestConnectionCommands_Arguments(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryConnections()
	log := zap.NewNop()

	assert.ErrorIs(t, connect(ctx, repo, log, []string{"shopee", "123"}), errUsage)
	assert.ErrorIs(t, disconnect(ctx, repo, log, nil), errUsage)
	assert.ErrorIs(t, listConnections(ctx, repo, log, []string{"a", "b"}), errUsage)

	assert.ErrorIs(t, connect(ctx, repo, log, []string{"amazon", "123", uuid.NewString()}), integration.ErrPlatformNotSupported)
	assert.ErrorIs(t, connect(ctx, repo, log, []string{"shopee", "123", "not-a-uuid"}), integration.ErrInvalidOrganizationID)
	assert.ErrorIs(t, connect(ctx, repo, log, []string{"shopee", " ", uuid.NewString()}), integration.ErrConnectionInvalidShopID)
	assert.ErrorIs(t, disconnect(ctx, repo, log, []string{"shopee", "404"}), integration.ErrConnectionNotFound)
	assert.ErrorIs(t, listConnections(ctx, repo, log, []string{"nope"}), integration.ErrInvalidOrganizationID)
}
