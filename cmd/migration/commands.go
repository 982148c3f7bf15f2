package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
)

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Steps(n int) error
	Migrate(version uint) error
	Force(version int) error
	Version() (uint, bool, error)
}

type migrationCommand struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(m migrator, args []string, logger *logging.Logger) error
}

var commands = []migrationCommand{
	{name: "up", usage: "up", help: "apply all pending migrations", run: runUp},
	{name: "down", usage: "down [steps]", help: "roll back steps migrations (default 1)", run: runDown},
	{name: "version", usage: "version", help: "print the current version", run: runVersion},
	{name: "force", usage: "force <version>", help: "set the version without migrating", run: runForce},
	{name: "goto", aliases: []string{"migrate"}, usage: "goto <version>", help: "migrate up or down to version", run: runGoto},
}

func lookupCommand(raw string) (migrationCommand, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
		for _, alias := range c.aliases {
			if alias == name {
				return c, true
			}
		}
	}
	return migrationCommand{}, false
}

func runUp(m migrator, _ []string, logger *logging.Logger) error {
	if err := ignoreNoChange(m.Up(), logger); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func runDown(m migrator, args []string, logger *logging.Logger) error {
	steps := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return fmt.Errorf("invalid down steps %q: %w", args[0], err)
		}
		if parsed <= 0 {
			return fmt.Errorf("down steps must be > 0")
		}
		steps = parsed
	}
	if err := ignoreNoChange(m.Steps(-steps), logger); err != nil {
		return err
	}
	logger.Info("migrations rolled back", "steps", steps)
	return nil
}

func runVersion(m migrator, _ []string, logger *logging.Logger) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("migration version", "version", "none", "dirty", false)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	logger.Info("migration version", "version", version, "dirty", dirty)
	return nil
}

func runForce(m migrator, args []string, logger *logging.Logger) error {
	version, err := versionArg(args)
	if err != nil {
		return err
	}
	if version > math.MaxInt {
		return fmt.Errorf("version %d is too large for this platform", version)
	}
	if err := m.Force(int(version)); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	logger.Info("migration version forced", "version", version)
	return nil
}

func runGoto(m migrator, args []string, logger *logging.Logger) error {
	version, err := versionArg(args)
	if err != nil {
		return err
	}
	if err := ignoreNoChange(m.Migrate(uint(version)), logger); err != nil {
		return err
	}
	logger.Info("migrated to version", "version", version)
	return nil
}

func versionArg(args []string) (uint64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("a version argument is required")
	}
	version, err := strconv.ParseUint(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return version, nil
}

func ignoreNoChange(err error, logger *logging.Logger) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return nil
	}
	return err
}
