// Command migrate applies the SQL migrations in deploy/postgres/migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	dir := flag.String("dir", "deploy/postgres/migrations", "migrations directory")
	flag.Usage = printUsage
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	_ = godotenv.Load()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+*dir, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("init migrations")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrations")
		}
	}()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			logger.Info().Msg("no change: database is up to date")
		case err != nil:
			logger.Fatal().Err(err).Msg("migrate up")
		default:
			logger.Info().Msg("migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			logger.Fatal().Err(err).Msg("roll back last migration")
		}
		logger.Info().Msg("last migration rolled back")

	case "goto":
		if flag.NArg() < 2 {
			logger.Fatal().Msg("goto needs a version number")
		}
		v, err := strconv.ParseUint(flag.Arg(1), 10, 64)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid version")
		}
		err = m.Migrate(uint(v))
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			logger.Info().Uint64("version", v).Msg("no change: already at version")
		case err != nil:
			logger.Fatal().Err(err).Uint64("version", v).Msg("migrate to version")
		default:
			logger.Info().Uint64("version", v).Msg("migrated")
		}

	case "status":
		v, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			logger.Info().Msg("no migrations applied yet")
		case err != nil:
			logger.Fatal().Err(err).Msg("read version")
		default:
			logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("current version")
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-dir path] <command>")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  up     apply all pending migrations")
	fmt.Fprintln(os.Stderr, "  down   roll back the last migration")
	fmt.Fprintln(os.Stderr, "  goto N migrate to version N")
	fmt.Fprintln(os.Stderr, "  status print the current version")
}
