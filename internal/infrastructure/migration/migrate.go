package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/optica/backend/migrations"
	"go.uber.org/zap"
)

// Migrator runs the PostgreSQL schema migrations
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New opens a Migrator on db. With an empty dir the migrations compiled into
// the binary are used, otherwise the *.sql files in dir.
func New(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	name, src, err := openSource(dir)
	if err != nil {
		return nil, err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("postgres migration driver: %w", err), src.Close())
	}
	m, err := migrate.NewWithInstance(name, src, "postgres", driver)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("migrate from %s: %w", name, err), src.Close())
	}
	m.Log = migrateLog{logger.Named("migrate")}

	return &Migrator{m: m, logger: logger.With(zap.String("source", name))}, nil
}

func openSource(dir string) (string, source.Driver, error) {
	if dir == "" {
		src, err := iofs.New(migrations.FS, ".")
		if err != nil {
			return "", nil, fmt.Errorf("embedded migrations: %w", err)
		}
		return "embedded", src, nil
	}
	src, err := (&file.File{}).Open("file://" + dir)
	if err != nil {
		return "", nil, fmt.Errorf("migrations in %s: %w", dir, err)
	}
	return dir, src, nil
}

func (m *Migrator) Up() error {
	return m.run("up", m.m.Up)
}

func (m *Migrator) Down() error {
	return m.run("down", m.m.Down)
}

// Steps moves n migrations up, or down when n is negative
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("steps %+d", n), func() error { return m.m.Steps(n) })
}

// Version reports the applied version. Zero means an empty schema.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clean without running anything.
// Use it after repairing a migration that failed halfway.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (m *Migrator) run(op string, step func() error) error {
	m.logger.Info("Migrating", zap.String("op", op))
	err := step()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Schema already up to date", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Migration finished",
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// migrateLog routes golang-migrate progress lines to zap at debug level
type migrateLog struct {
	logger *zap.Logger
}

func (l migrateLog) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLog) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}
