package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
)

type fakeMigrator struct {
	upErr      error
	steps      []int
	migratedTo []uint
	forced     []int
	version    uint
	dirty      bool
	versionErr error
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Migrate(version uint) error {
	f.migratedTo = append(f.migratedTo, version)
	return migrate.ErrNoChange
}

func (f *fakeMigrator) Force(version int) error {
	f.forced = append(f.forced, version)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, f.versionErr }

func TestLookupCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "up", want: "up", wantOK: true},
		{in: " DOWN ", want: "down", wantOK: true},
		{in: "migrate", want: "goto", wantOK: true},
		{in: "sideways"},
	}
	for _, tt := range tests {
		got, ok := lookupCommand(tt.in)
		if ok != tt.wantOK || got.name != tt.want {
			t.Fatalf("lookupCommand(%q) got=(%q,%v) want=(%q,%v)", tt.in, got.name, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCommands(t *testing.T) {
	t.Parallel()

	logger := logging.NewNop()

	t.Run("up treats no change as success", func(t *testing.T) {
		if err := runUp(&fakeMigrator{upErr: migrate.ErrNoChange}, nil, logger); err != nil {
			t.Fatalf("runUp() error: %v", err)
		}
		boom := errors.New("boom")
		if err := runUp(&fakeMigrator{upErr: boom}, nil, logger); !errors.Is(err, boom) {
			t.Fatalf("runUp() got=%v want=%v", err, boom)
		}
	})

	t.Run("down defaults to one step", func(t *testing.T) {
		m := &fakeMigrator{}
		if err := runDown(m, nil, logger); err != nil {
			t.Fatalf("runDown() error: %v", err)
		}
		if err := runDown(m, []string{"3"}, logger); err != nil {
			t.Fatalf("runDown(3) error: %v", err)
		}
		if len(m.steps) != 2 || m.steps[0] != -1 || m.steps[1] != -3 {
			t.Fatalf("unexpected steps: %v", m.steps)
		}
		for _, bad := range []string{"0", "-2", "x"} {
			if err := runDown(m, []string{bad}, logger); err == nil {
				t.Fatalf("expected error for steps %q", bad)
			}
		}
	})

	t.Run("version without migrations", func(t *testing.T) {
		if err := runVersion(&fakeMigrator{versionErr: migrate.ErrNilVersion}, nil, logger); err != nil {
			t.Fatalf("runVersion() error: %v", err)
		}
		if err := runVersion(&fakeMigrator{versionErr: errors.New("db down")}, nil, logger); err == nil {
			t.Fatalf("expected version error")
		}
	})

	t.Run("force and goto need a version", func(t *testing.T) {
		m := &fakeMigrator{}
		if err := runForce(m, nil, logger); err == nil {
			t.Fatalf("expected error without version")
		}
		if err := runGoto(m, []string{"-1"}, logger); err == nil {
			t.Fatalf("expected error for negative version")
		}
		if err := runForce(m, []string{"1771776034"}, logger); err != nil {
			t.Fatalf("runForce() error: %v", err)
		}
		if err := runGoto(m, []string{"1771776034"}, logger); err != nil {
			t.Fatalf("runGoto() error: %v", err)
		}
		if len(m.forced) != 1 || m.forced[0] != 1771776034 || len(m.migratedTo) != 1 || m.migratedTo[0] != 1771776034 {
			t.Fatalf("unexpected calls forced=%v migrated=%v", m.forced, m.migratedTo)
		}
	})
}

func TestFindMigrationsDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "sql")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	env := map[string]string{"MIGRATIONS_DIR": filepath.Join(dir, "missing"), "MIGRATIONS_PATH": nested}
	got, err := findMigrationsDir(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("findMigrationsDir() error: %v", err)
	}
	if got != nested {
		t.Fatalf("findMigrationsDir() got=%q want=%q", got, nested)
	}
}
