package persistence

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDatabase wraps a ping-monitoring sqlmock connection in a postgres Database
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: DriverPostgres}),
		&gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	return &Database{DB: gormDB, Driver: DriverPostgres}, mock, conn
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		db, mock, conn := newMockDatabase(t)
		defer conn.Close()

		mock.ExpectPing()
		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection lost", func(t *testing.T) {
		db, mock, conn := newMockDatabase(t)
		defer conn.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		err := db.Ping()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewDatabase(t *testing.T) {
	t.Run("sqlite creates the invoicing tables", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"})
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, DriverSQLite, db.Driver)
		require.NoError(t, db.AutoMigrate())

		tables := []string{
			"facturas", "factura_detalles", "factura_descuentos", "pagos",
			"clientes", "empleados", "productos", "producto_atributos",
			"descuentos", "metodos_pago",
		}
		for _, table := range tables {
			assert.True(t, db.DB.Migrator().HasTable(table), table)
		}

		sqlDB, err := db.DB.DB()
		require.NoError(t, err)
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("migrating twice is a no-op", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"})
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, db.AutoMigrate())
		assert.NoError(t, db.AutoMigrate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := NewDatabase(&config.DatabaseConfig{Driver: "mysql"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unsupported database driver "mysql"`)
	})

	t.Run("custom gorm logger", func(t *testing.T) {
		gormLogger := logger.Default.LogMode(logger.Warn)
		db, err := NewDatabaseWithCustomLogger(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"}, gormLogger)
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, gormLogger, db.DB.Logger)
	})
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, DriverPostgres, driverName(""))
	assert.Equal(t, DriverSQLite, driverName(DriverSQLite))
}
