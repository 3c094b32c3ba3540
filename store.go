package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	shortlist_size INTEGER NOT NULL,
	blocks         INTEGER NOT NULL,
	slots          INTEGER NOT NULL,
	seed           INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS shortlist (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	rank       INTEGER NOT NULL,
	course     TEXT NOT NULL,
	repeats    INTEGER NOT NULL,
	popularity INTEGER NOT NULL,
	comparison REAL NOT NULL,
	PRIMARY KEY (run_id, course)
);
CREATE TABLE IF NOT EXISTS courselist (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	id       INTEGER NOT NULL,
	course   TEXT NOT NULL,
	instance INTEGER NOT NULL,
	block    INTEGER,
	students INTEGER NOT NULL,
	PRIMARY KEY (run_id, id)
);
CREATE TABLE IF NOT EXISTS selections (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	student    TEXT NOT NULL,
	slot       INTEGER NOT NULL,
	courseid   INTEGER,
	course     TEXT,
	block      INTEGER,
	preference INTEGER,
	PRIMARY KEY (run_id, student, slot)
);
`

// ExportSQLite stores the run's tables in a SQLite database, replacing any
// earlier copy of the same run.
func ExportSQLite(path string, data *DataSet, result *Result) (err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	if _, err = db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables in %s: %w", path, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	id := result.RunID.String()
	for _, table := range []string{"selections", "courselist", "shortlist", "runs"} {
		column := "run_id"
		if table == "runs" {
			column = "id"
		}
		if _, err = tx.Exec("DELETE FROM "+table+" WHERE "+column+" = ?", id); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	p := result.Params
	if _, err = tx.Exec(`INSERT INTO runs (id, shortlist_size, blocks, slots, seed) VALUES (?, ?, ?, ?, ?)`,
		id, p.ShortlistSize, p.Blocks, p.Slots, p.Seed); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, entry := range result.Shortlist.Entries {
		if _, err = tx.Exec(`INSERT INTO shortlist (run_id, rank, course, repeats, popularity, comparison) VALUES (?, ?, ?, ?, ?, ?)`,
			id, entry.Rank, entry.Course.Name, entry.Repeats, entry.Popularity, entry.Comparison()); err != nil {
			return fmt.Errorf("inserting shortlist: %w", err)
		}
	}

	for _, inst := range result.Courselist.Instances {
		var block sql.NullInt64
		if inst.Block > 0 {
			block = sql.NullInt64{Int64: int64(inst.Block), Valid: true}
		}
		if _, err = tx.Exec(`INSERT INTO courselist (run_id, id, course, instance, block, students) VALUES (?, ?, ?, ?, ?, ?)`,
			id, inst.ID, inst.Course.Name, inst.Instance, block, result.Assignment.Enrolled[inst]); err != nil {
			return fmt.Errorf("inserting courselist: %w", err)
		}
	}

	for _, record := range data.Records(result.Assignment) {
		var courseid, block, preference sql.NullInt64
		var course sql.NullString
		if record.Instance != nil {
			courseid = sql.NullInt64{Int64: int64(record.Instance.ID), Valid: true}
			course = sql.NullString{String: record.Instance.Course.Name, Valid: true}
			block = sql.NullInt64{Int64: int64(record.Instance.Block), Valid: true}
			preference = sql.NullInt64{Int64: int64(record.Rank), Valid: true}
		}
		if _, err = tx.Exec(`INSERT INTO selections (run_id, student, slot, courseid, course, block, preference) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, record.Student.Name, record.Slot, courseid, course, block, preference); err != nil {
			return fmt.Errorf("inserting selections: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	slog.Info("results exported", "sqlite", path, "run", id)
	return nil
}
