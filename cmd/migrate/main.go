package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/optica/backend/internal/infrastructure/logger"
	"github.com/optica/backend/internal/infrastructure/migration"
	"github.com/optica/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// cli carries what every command needs. migrator is only set for commands
// that touch the database.
type cli struct {
	log      *zap.Logger
	dir      string
	args     []string
	migrator *migration.Migrator
}

type command struct {
	usage   string
	minArgs int
	needsDB bool
	run     func(*cli) error
}

var commands = map[string]command{
	"up":      {usage: "up", needsDB: true, run: func(c *cli) error { return c.migrator.Up() }},
	"down":    {usage: "down", needsDB: true, run: func(c *cli) error { return c.migrator.Down() }},
	"step":    {usage: "step <n>", minArgs: 1, needsDB: true, run: runStep},
	"version": {usage: "version", needsDB: true, run: runVersion},
	"force":   {usage: "force <version>", minArgs: 1, needsDB: true, run: runForce},
	"create":  {usage: "create <name> [description]", minArgs: 1, run: runCreate},
	"list":    {usage: "list", run: runList},
}

func main() {
	path := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	if len(args)-1 < cmd.minArgs {
		fmt.Fprintf(os.Stderr, "usage: migrate %s\n", cmd.usage)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	c := &cli{log: log, args: args[1:]}
	if *path != "" {
		if c.dir, err = filepath.Abs(*path); err != nil {
			log.Fatal("Invalid migrations path", zap.String("path", *path), zap.Error(err))
		}
	}

	err = execute(c, args[0], cmd)
	_ = logger.Sync(log)
	if err != nil {
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func execute(c *cli, name string, cmd command) error {
	source := c.dir
	if source == "" {
		source = "embedded"
	}
	c.log.Info("Migration CLI started", zap.String("command", name), zap.String("source", source))

	if !cmd.needsDB {
		return cmd.run(c)
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if c.migrator, err = migration.New(db, c.dir, c.log); err != nil {
		return err
	}
	defer c.migrator.Close()

	return cmd.run(c)
}

// openDatabase connects with the server configuration. Only PostgreSQL is
// migrated with SQL files; SQLite schemas are created on startup.
func openDatabase() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("driver %q is not migrated with SQL files", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func runStep(c *cli) error {
	n, err := strconv.Atoi(c.args[0])
	if err != nil || n == 0 {
		return fmt.Errorf("step count must be a non-zero integer, got %q", c.args[0])
	}
	return c.migrator.Steps(n)
}

func runForce(c *cli) error {
	version, err := strconv.Atoi(c.args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q", c.args[0])
	}
	return c.migrator.Force(version)
}

func runVersion(c *cli) error {
	version, dirty, err := c.migrator.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		c.log.Info("No migrations applied")
		return nil
	}
	c.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	if dirty {
		c.log.Warn("Schema is dirty; fix it by hand, then run: migrate force <version>")
	}
	return nil
}

func runCreate(c *cli) error {
	dir := c.dir
	if dir == "" {
		dir = defaultMigrationsDir
	}
	var description string
	if len(c.args) > 1 {
		description = c.args[1]
	}

	mf, err := migration.CreateMigration(dir, c.args[0], description)
	if errors.Is(err, migration.ErrMigrationExists) {
		return fmt.Errorf("%w; pick another name", err)
	}
	if err != nil {
		return err
	}
	c.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up", mf.UpPath),
		zap.String("down", mf.DownPath),
	)
	return nil
}

func runList(c *cli) error {
	var (
		names []string
		err   error
	)
	if c.dir == "" {
		names, err = migration.ListMigrationsFS(migrations.FS)
	} else {
		names, err = migration.ListMigrations(c.dir)
	}
	if err != nil {
		return err
	}

	c.log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println(" ", name)
	}
	return nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Schema migrations for the invoicing database.

Usage:
  migrate [-path dir] [-log-level level] <command> [arguments]

Commands:
  up                       apply all pending migrations
  down                     roll back every migration
  step <n>                 apply n migrations, negative n rolls back
  version                  print the applied version
  force <version>          set the version without running SQL
  create <name> [desc]     write an empty up/down pair
  list                     list migrations of the selected source

The database is read from the server configuration
(OPTICA_DATABASE_HOST, OPTICA_DATABASE_PORT, OPTICA_DATABASE_USER,
OPTICA_DATABASE_PASSWORD, OPTICA_DATABASE_DBNAME, OPTICA_DATABASE_SSLMODE).

Example:
  migrate create add_optometrist_to_invoices "Record the prescribing optometrist"
`)
}
