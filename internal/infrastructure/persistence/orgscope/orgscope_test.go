package orgscope

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type entryModel struct {
	ID             uint
	OrganizationID uuid.UUID
	Message        string
}

func (entryModel) TableName() string { return "entries" }

type otherModel struct {
	ID   uint
	Name string
}

func (otherModel) TableName() string { return "others" }

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestOrganization(t *testing.T) {
	t.Run("adds organization filter", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		orgID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "entries" WHERE organization_id = \$1`).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "message"}).AddRow(1, orgID, "m"))

		var rows []entryModel
		err := db.Scopes(Organization(orgID)).Find(&rows).Error
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil organization fails the statement", func(t *testing.T) {
		db, _, mockDB := setupMockDB(t)
		defer mockDB.Close()

		var rows []entryModel
		err := db.Scopes(Organization(uuid.Nil)).Find(&rows).Error
		assert.ErrorIs(t, err, ErrOrganizationRequired)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("uses organization from context", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		orgID := uuid.New()
		ctx, _ := logger.WithOrganizationID(context.Background(), zap.NewNop(), orgID.String())

		mock.ExpectQuery(`SELECT \* FROM "entries" WHERE organization_id = \$1`).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		var rows []entryModel
		require.NoError(t, db.WithContext(ctx).Scopes(FromContext(ctx)).Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing organization", func(t *testing.T) {
		db, _, mockDB := setupMockDB(t)
		defer mockDB.Close()

		var rows []entryModel
		err := db.Scopes(FromContext(context.Background())).Find(&rows).Error
		assert.ErrorIs(t, err, ErrOrganizationRequired)
	})

	t.Run("malformed organization", func(t *testing.T) {
		db, _, mockDB := setupMockDB(t)
		defer mockDB.Close()

		ctx, _ := logger.WithOrganizationID(context.Background(), zap.NewNop(), "not-a-uuid")
		var rows []entryModel
		err := db.Scopes(FromContext(ctx)).Find(&rows).Error
		assert.ErrorIs(t, err, ErrInvalidOrganizationID)
	})
}

func TestRegisterAppendOnly(t *testing.T) {
	t.Run("blocks update and delete on guarded tables", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()
		require.NoError(t, RegisterAppendOnly(db, "entries"))

		err := db.Model(&entryModel{}).Where("id = ?", 1).Update("message", "changed").Error
		assert.ErrorIs(t, err, ErrAppendOnly)

		err = db.Where("id = ?", 1).Delete(&entryModel{}).Error
		assert.ErrorIs(t, err, ErrAppendOnly)

		assert.NoError(t, mock.ExpectationsWereMet(), "no statement reaches the database")
	})

	t.Run("other tables are unaffected", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()
		require.NoError(t, RegisterAppendOnly(db, "entries"))

		mock.ExpectExec(`UPDATE "others" SET "name"=\$1 WHERE id = \$2`).
			WithArgs("n", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := db.Model(&otherModel{}).Where("id = ?", 1).Update("name", "n").Error
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no tables is a no-op", func(t *testing.T) {
		db, _, mockDB := setupMockDB(t)
		defer mockDB.Close()
		assert.NoError(t, RegisterAppendOnly(db))
	})
}
