package db

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// TestMigrateIdempotency tests that running Migrate multiple times doesn't
// cause errors and produces the correct schema.
func TestMigrateIdempotency(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping idempotency test")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close db: %v", err)
		}
	}()

	ctx := context.Background()
	cleanDatabase(t, ctx, db)

	verifyScanCountsPK := func(t *testing.T) {
		var keyColumns string
		err := db.QueryRowContext(ctx, `
			SELECT string_agg(a.attname, ',' ORDER BY array_position(i.indkey, a.attnum::smallint))
			FROM   pg_index i
			JOIN   pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
			WHERE  i.indrelid = 'scan_counts'::regclass
			AND    i.indisprimary
		`).Scan(&keyColumns)
		if err != nil {
			t.Fatalf("failed to query scan_counts primary key: %v", err)
		}
		if keyColumns != "video_id" {
			t.Errorf("scan_counts primary key = %s, want video_id", keyColumns)
		}
	}

	verifyKvPK := func(t *testing.T) {
		var keyColumns string
		err := db.QueryRowContext(ctx, `
			SELECT string_agg(a.attname, ',' ORDER BY array_position(i.indkey, a.attnum::smallint))
			FROM   pg_index i
			JOIN   pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
			WHERE  i.indrelid = 'kv'::regclass
			AND    i.indisprimary
		`).Scan(&keyColumns)
		if err != nil {
			t.Fatalf("failed to query kv primary key: %v", err)
		}
		if keyColumns != "key" {
			t.Errorf("kv primary key = %s, want key", keyColumns)
		}
	}

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	verifyScanCountsPK(t)
	verifyKvPK(t)

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	verifyScanCountsPK(t)
	verifyKvPK(t)

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("third migrate: %v", err)
	}
	verifyScanCountsPK(t)
	verifyKvPK(t)
}

// TestMigrateConcurrentCallers exercises Migrate being invoked from two
// connections against the same database, matching how main.go and a test
// helper may race to provision schema on a shared instance.
func TestMigrateConcurrentCallers(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping concurrent migrate test")
	}

	db1, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db1: %v", err)
	}
	defer db1.Close()
	db2, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db2: %v", err)
	}
	defer db2.Close()

	ctx := context.Background()
	cleanDatabase(t, ctx, db1)

	errs := make(chan error, 2)
	go func() { errs <- Migrate(ctx, db1) }()
	go func() { errs <- Migrate(ctx, db2) }()

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent migrate: %v", err)
		}
	}

	var exists bool
	if err := db1.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT FROM information_schema.tables WHERE table_name = 'scan_counts'
	)`).Scan(&exists); err != nil {
		t.Fatalf("failed to check scan_counts table: %v", err)
	}
	if !exists {
		t.Error("scan_counts table does not exist after concurrent migrate")
	}
}
