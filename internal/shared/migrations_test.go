package shared

import (
	"errors"
	"slices"
	"testing"

	"github.com/jmoiron/sqlx"
)

func TestMigrationRunner(t *testing.T) {
	openDB := func(t *testing.T, driver string) *sqlx.DB {
		t.Helper()
		db, err := NewDatabase(driver, MemoryDatabase)
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return db
	}

	countApplied := func(t *testing.T, db *sqlx.DB) int {
		t.Helper()
		var count int
		if err := db.Get(&count, "SELECT COUNT(*) FROM schema_migrations"); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}
		return count
	}

	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		names := make([]string, len(migrations))
		for i, m := range migrations {
			names[i] = m.Name
			if m.Version != i {
				t.Errorf("expected version %d at index %d, got %d", i, i, m.Version)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration %d is missing a direction", m.Version)
			}
		}
		if !slices.Equal(names, []string{"videos", "articles", "posts", "reading"}) {
			t.Errorf("unexpected migration names %v", names)
		}
	})

	t.Run("splitStatements", func(t *testing.T) {
		script := `
			-- channels
			CREATE TABLE a (id TEXT); -- trailing
			;

			CREATE INDEX idx_a ON a (id);
		`
		got := splitStatements(script)
		want := []string{"CREATE TABLE a (id TEXT)", "CREATE INDEX idx_a ON a (id)"}
		if !slices.Equal(got, want) {
			t.Errorf("splitStatements() = %q, want %q", got, want)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db := openDB(t, "sqlite3")

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		count := countApplied(t, db)
		if count == 0 {
			t.Error("expected at least one migration to be applied")
		}

		for _, table := range []string{"channels", "videos", "feeds", "articles", "accounts", "posts", "reading_materials", "tags", "material_tags"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}
		if n := countApplied(t, db); n != count-1 {
			t.Errorf("expected %d applied migrations after rollback, got %d", count-1, n)
		}

		if _, err := db.Exec("SELECT 1 FROM reading_materials LIMIT 1"); err == nil {
			t.Error("reading_materials should be dropped by rolling back the latest migration")
		}
		if _, err := db.Exec("SELECT 1 FROM videos LIMIT 1"); err != nil {
			t.Errorf("videos should survive a single rollback: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to re-apply migrations: %v", err)
		}
		if _, err := db.Exec("SELECT 1 FROM reading_materials LIMIT 1"); err != nil {
			t.Errorf("reading_materials should be restored: %v", err)
		}
	})

	t.Run("Rollback everything", func(t *testing.T) {
		db := openDB(t, "sqlite3")
		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		for range migrations {
			if err := RollbackMigration(db); err != nil {
				t.Fatalf("failed to rollback: %v", err)
			}
		}
		if n := countApplied(t, db); n != 0 {
			t.Errorf("expected no applied migrations, got %d", n)
		}
		if err := RollbackMigration(db); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument with nothing to roll back, got %v", err)
		}
	})

	t.Run("Migrations reports status", func(t *testing.T) {
		db := openDB(t, "sqlite3")

		statuses, err := Migrations(db)
		if err != nil {
			t.Fatalf("Migrations() error = %v", err)
		}
		for _, s := range statuses {
			if s.Applied {
				t.Errorf("expected %d to be pending on a fresh database", s.Version)
			}
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		statuses, _ = Migrations(db)
		last := statuses[len(statuses)-1]
		if last.Applied || !statuses[0].Applied {
			t.Errorf("expected only the latest migration pending, got %+v", statuses)
		}
	})

	t.Run("pure go driver", func(t *testing.T) {
		db := openDB(t, "sqlite")

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if _, err := db.Exec("SELECT 1 FROM posts LIMIT 1"); err != nil {
			t.Errorf("posts table should exist after migrations: %v", err)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db := openDB(t, "sqlite3")

		for i := range 2 {
			if err := RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations (pass %d): %v", i+1, err)
			}
		}

		migrations, _ := loadMigrations()
		if n := countApplied(t, db); n != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), n)
		}
	})
}
