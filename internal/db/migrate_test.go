package db_test

import (
	"context"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/companies/db"
	"github.com/garnizeh/companies/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 migrations recorded, got %d", count)
	}

	for _, table := range []string{"companies", "job_descriptions", "sync_ledger", "jobs", "dead_letter_jobs"} {
		var name string
		r := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)
		if err := r.Scan(&name); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}
}

func TestMigrate_AppliesSeeds(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	// seeds run on every call and must not duplicate rows
	for range 2 {
		if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			t.Fatalf("migrate with seeds: %v", err)
		}
	}

	var (
		n       int
		name    string
		hash    string
		updated int64
	)
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM companies`).Scan(&n); err != nil {
		t.Fatalf("count companies: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one seeded company, got %d", n)
	}
	row := d.QueryRow(ctx, `SELECT name, password_hash, updated FROM companies WHERE email = 'demo@companies.local'`)
	if err := row.Scan(&name, &hash, &updated); err != nil {
		t.Fatalf("read seeded company: %v", err)
	}
	if name != "Demo Company" || hash != "!" || updated <= 0 {
		t.Fatalf("unexpected seeded company: %q %q %d", name, hash, updated)
	}
}

func TestMigrate_BadSeed(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	bad := fstest.MapFS{
		"seed/0001_bad.sql": &fstest.MapFile{Data: []byte(`INSERT INTO missing_table VALUES (1);`)},
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, bad); err == nil {
		t.Fatalf("expected error for a failing seed")
	}
}

func TestMigrate_BadMigration(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	bad := fstest.MapFS{
		"migrations/0001_bad.sql": &fstest.MapFile{Data: []byte(`CREATE TABLE (`)},
	}
	if err := db.Migrate(ctx, d, bad, nil); err == nil {
		t.Fatalf("expected error for invalid migration")
	}
}
