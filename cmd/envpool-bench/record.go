// File: cmd/envpool-bench/record.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Optional SQLite sink for bench results.

package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createRunsTable = `CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	started       TEXT NOT NULL,
	env           TEXT NOT NULL,
	sync          INTEGER NOT NULL,
	steps         INTEGER NOT NULL,
	seconds       REAL NOT NULL,
	steps_per_sec REAL NOT NULL,
	report        TEXT NOT NULL
)`

// recordRun appends r, with its encoded form, to the runs table at path.
func recordRun(path string, r *report, encoded []byte) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(createRunsTable); err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO runs (run_id, started, env, sync, steps, seconds, steps_per_sec, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Started.UTC().Format(time.RFC3339Nano), r.Env, r.Sync,
		r.Steps, r.Seconds, r.StepsPerSec, string(encoded),
	)
	return err
}
