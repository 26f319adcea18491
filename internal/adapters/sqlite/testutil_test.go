package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/atelier/internal/db"
	"github.com/example/atelier/internal/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})
	return testDB
}

func seedProject(t *testing.T, testDB *sql.DB, id, mode string) {
	t.Helper()
	_, err := testDB.Exec(
		`INSERT INTO projects (id, user_id, name, mode, status) VALUES (?, 'user-1', 'Test Project', ?, ?)`,
		id, mode, models.ProjectStatusActive,
	)
	if err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
}
