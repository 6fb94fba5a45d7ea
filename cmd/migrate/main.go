package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/config"
	"github.com/ariefcatur/lumina-store/internal/logx"
	"github.com/ariefcatur/lumina-store/internal/postgres"
)

const usage = "usage: migrate [--migrations-path dir] [--steps n] up|down|seed"

type migrationLogger struct {
	log *zap.Logger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrationLogger) Verbose() bool { return true }

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logx.New(logx.Options{Env: cfg.AppEnv, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	fs := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	path := fs.StringP("migrations-path", "m", cfg.MigrationsPath, "directory holding *.sql migrations")
	steps := fs.Int("steps", 0, "number of migrations to roll back with down (0 = all)")
	_ = fs.String("config", "", "config file")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	switch cmd := fs.Arg(0); cmd {
	case "up", "down":
		err = migrateDB(cfg.PostgresDSN, *path, cmd, *steps, log)
	case "seed":
		err = seedDB(cfg.PostgresDSN, log)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("migrate failed", zap.String("command", fs.Arg(0)), zap.Error(err))
	}
}

// pgx5URL rewrites a postgres:// DSN for the golang-migrate pgx/v5 driver.
func pgx5URL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}

func migrateDB(dsn, path, direction string, steps int, log *zap.Logger) error {
	m, err := migrate.New("file://"+path, pgx5URL(dsn))
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	m.Log = migrationLogger{log: log}

	switch {
	case direction == "up":
		err = m.Up()
	case steps > 0:
		err = m.Steps(-steps)
	default:
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return err
	}
	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return verr
	}
	log.Info("migrations applied", zap.String("direction", direction), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func seedDB(dsn string, log *zap.Logger) error {
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := seedCatalog(ctx, db)
	if err != nil {
		return err
	}
	log.Info("database seeded", zap.Int("products", n))
	return nil
}
