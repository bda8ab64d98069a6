package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrations_Present(t *testing.T) {
	entries, err := fs.ReadDir(embedMigrations, "migrations")
	if err != nil {
		t.Fatalf("cannot read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migrations found")
	}

	raw, err := fs.ReadFile(embedMigrations, "migrations/0001_init.sql")
	if err != nil {
		t.Fatalf("0001_init.sql missing: %v", err)
	}
	body := string(raw)
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "CREATE TABLE IF NOT EXISTS captures"} {
		if !strings.Contains(body, want) {
			t.Errorf("migration lacks %q", want)
		}
	}
}
