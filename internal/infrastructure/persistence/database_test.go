package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/commercesync/internal/infrastructure/config"
	"github.com/erp/commercesync/internal/infrastructure/persistence/models"
	"github.com/erp/commercesync/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing()
		assert.NoError(t, db.Ping(context.Background()))
	})

	t.Run("ping failure", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		assert.Error(t, db.Ping(context.Background()))
	})
}

func TestDatabase_Stats(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := db.Transaction(context.Background(), func(tx *gorm.DB) error { return nil })
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := db.Transaction(context.Background(), func(tx *gorm.DB) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_AutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	for _, m := range models.All() {
		assert.True(t, db.DB.Migrator().HasTable(m), "%T table exists", m)
	}
	assert.True(t, db.DB.Migrator().HasIndex(&models.AppliedSyncEventModel{}, "idx_applied_sync_event_key"))
	assert.True(t, db.DB.Migrator().HasIndex(&models.PlatformConnectionModel{}, "idx_platform_connection_shop"))
}

func TestOpen_LogsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	db, err := Open(sqlite.Open(":memory:"), WithLogger(zap.New(core), gormlogger.Info))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.DB.Exec("SELECT 1").Error)
	assert.GreaterOrEqual(t, logs.FilterMessage("SQL query").Len(), 1)
}

func TestOpen_WithTracing(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), WithTracing(telemetry.DBTracingConfig{
		Enabled:            true,
		DBName:             "commercesync",
		SlowQueryThreshold: 100 * time.Millisecond,
	}))
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.DB.Exec("SELECT 1").Error)
}

func TestNewDatabase_Unreachable(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         1,
		User:         "u",
		DBName:       "d",
		SSLMode:      "disable",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.Error(t, err)
}
