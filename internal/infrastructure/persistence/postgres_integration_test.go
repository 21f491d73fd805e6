//go:build integration

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/config"
	"github.com/erp/commercesync/internal/infrastructure/persistence/models"
	"github.com/erp/commercesync/internal/infrastructure/persistence/orgscope"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway PostgreSQL container and returns a
// migrated Database connected through NewDatabase
func setupPostgres(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("commercesync_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := NewDatabase(&config.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		User:         "postgres",
		Password:     "postgres",
		DBName:       "commercesync_test",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.AutoMigrate(ctx))
	return db
}

func TestPostgres_ConcurrentRedeliveryAppliesOnce(t *testing.T) {
	db := setupPostgres(t)
	store := NewGormReconciliationStore(db.DB)
	ctx := context.Background()
	orgID := uuid.New()

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[integration.ApplyOutcome]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.ApplyOrderEvent(ctx, orderCommand(orgID, "evt-race", "O-1", "PAID"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			results[result.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, results[integration.ApplyOutcomeApplied])
	assert.Equal(t, workers-1, results[integration.ApplyOutcomeAlreadyApplied])
	assert.Equal(t, int64(1), countApplied(t, db))
}

func TestPostgres_SyncLogAppendOnly(t *testing.T) {
	db := setupPostgres(t)
	repo := NewGormSyncLogRepository(db.DB)
	ctx := context.Background()

	entry := newTestEntry(t, uuid.New(), integration.PlatformShopline, integration.SyncLogStatusSuccess)
	require.NoError(t, repo.Append(ctx, entry))

	err := db.DB.Model(&models.SyncLogModel{}).Where("id = ?", entry.ID).Update("message", "rewritten").Error
	assert.ErrorIs(t, err, orgscope.ErrAppendOnly)

	entries, err := repo.List(ctx, integration.SyncLogFilter{
		OrganizationID: entry.OrganizationID,
		Platform:       integration.PlatformShopline,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, `{"order_sn":"order-1"}`, string(entries[0].RequestData))
	assert.Equal(t, "1001", entries[0].Metadata["shop_id"])
}

func TestPostgres_Ping(t *testing.T) {
	db := setupPostgres(t)
	assert.NoError(t, db.Ping(context.Background()))

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 10, stats.MaxOpenConnections)
}
