package postgres

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestPostgresStore(t *testing.T) {
	// Only run this test if SERPENT_TEST_PG_DSN is set
	dsn := os.Getenv("SERPENT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres store test: SERPENT_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres store: %v", err)
	}
	defer store.Close()

	key := "test-" + time.Now().Format("20060102150405.000000000")
	defer store.Delete(ctx, key)

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing key, got %q", got)
	}

	if err := store.Set(ctx, key, []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get() = %q, want %q", got, "payload")
	}

	if err := store.Set(ctx, key, []byte("updated"), time.Hour); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "updated" {
		t.Errorf("Get() after overwrite = %q, want %q", got, "updated")
	}

	// An already-expired entry is invisible to readers.
	if err := store.Set(ctx, key, []byte("stale"), -time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("expected expired entry to read as missing")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}
