package db

// SchemaSQL is the complete schema for fresh Atelier installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Tests load
// it via GetSchemaSQL() instead of hardcoding CREATE TABLE statements, so
// repository code that references a missing column fails immediately with
// "no such column" during tests rather than in production.
//
// When adding columns or tables, add a migration in migrations.go and
// update SchemaSQL here to match the post-migration shape.
const SchemaSQL = `
-- Projects (one instructional-design engagement each)
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	mode TEXT NOT NULL CHECK(mode IN ('standard', 'quick')) DEFAULT 'standard',
	status TEXT NOT NULL CHECK(status IN ('active', 'archived')) DEFAULT 'active',
	current_stage TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Chat messages, ordered by per-project sequence
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK(role IN ('user', 'assistant', 'system')),
	content TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
	UNIQUE(project_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project_id, sequence);

-- Artifacts (one deliverable per phase per project, versioned in place)
CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	artifact_type TEXT NOT NULL,
	content TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('draft', 'approved', 'stale')) DEFAULT 'draft',
	version INTEGER NOT NULL DEFAULT 1,
	updated_by_message_id TEXT,
	approved_at DATETIME,
	approved_by TEXT,
	stale_reason TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
	UNIQUE(project_id, artifact_type)
);

CREATE INDEX IF NOT EXISTS idx_artifacts_project ON artifacts(project_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_status ON artifacts(status);

-- Audit trail of entity operations
CREATE TABLE IF NOT EXISTS activity_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL,
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activity_log_entity ON activity_log(entity_type, entity_id);
`

// InitSchema creates the database schema
func InitSchema() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		// Fresh install - create the modern schema directly and mark all
		// migrations as applied so they never run against it.
		if _, err := db.Exec(SchemaSQL); err != nil {
			return err
		}
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`); err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	// schema_version table exists - run any pending migrations
	return RunMigrations()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
