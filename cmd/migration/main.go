package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/riskibarqy/contest-feed/internal/config"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	command, ok := lookupCommand(os.Args[1])
	if !ok {
		printUsage()
		os.Exit(2)
	}

	logger := logging.NewJSON(logging.LevelInfo).With("service", "contest-feed-migration")
	defer func() { _ = logger.Sync() }()

	if err := run(command, os.Args[2:], logger); err != nil {
		logger.Error("migration failed", "command", command.name, "error", err)
		os.Exit(1)
	}
}

func run(command migrationCommand, args []string, logger *logging.Logger) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}

	dir, err := findMigrationsDir(os.Getenv)
	if err != nil {
		return err
	}
	sourceURL := "file://" + filepath.ToSlash(dir)

	m, err := migrate.New(sourceURL, cfg.CacheDSN())
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn("close migrator", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	return command.run(m, args, logger.With("source", sourceURL))
}

var migrationsDirCandidates = []string{"./db/migrations", "/app/db/migrations"}

func findMigrationsDir(getenv func(string) string) (string, error) {
	candidates := append([]string{getenv("MIGRATIONS_DIR"), getenv("MIGRATIONS_PATH")}, migrationsDirCandidates...)
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}
	return "", fmt.Errorf("migration directory not found (checked MIGRATIONS_DIR, MIGRATIONS_PATH, %s)",
		strings.Join(migrationsDirCandidates, ", "))
}

func printUsage() {
	bin := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <command> [args]\n\ncommands:\n", bin)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-24s %s\n", c.usage, c.help)
	}
}
