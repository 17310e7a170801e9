package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsHaveGooseMarkers(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	for _, entry := range entries {
		body, err := fs.ReadFile(migrationFiles, migrationsDir+"/"+entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		text := string(body)
		if !strings.Contains(text, "-- +goose Up") || !strings.Contains(text, "-- +goose Down") {
			t.Fatalf("%s is missing goose up/down markers", entry.Name())
		}
	}
}
