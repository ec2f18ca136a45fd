package database

import (
	"database/sql"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		"trigger" TEXT NOT NULL DEFAULT 'cli',
		status TEXT NOT NULL DEFAULT 'pending',
		snapshot TEXT,
		revision TEXT,
		error TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS run_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER,
		output TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_run_steps_run_id ON run_steps(run_id)`,
}

func runMigrations(db *sql.DB) error {
	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
