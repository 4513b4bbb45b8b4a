package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteSink appends records as rows of an insert-only table. WAL mode plus a
// busy timeout lets independent worker processes on one host insert
// concurrently; for shared network filesystems the JSON-lines sink is the
// documented choice.
type sqliteSink struct {
	db *sql.DB
}

const resultsSchema = `
CREATE TABLE IF NOT EXISTS results (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id         TEXT NOT NULL,
	job_id           INTEGER NOT NULL,
	compendium       TEXT NOT NULL,
	annmat           TEXT NOT NULL,
	params           TEXT NOT NULL,
	seed             INTEGER NOT NULL,
	status           TEXT NOT NULL,
	failed_stage     TEXT,
	reason           TEXT,
	anns_significant INTEGER,
	mods_significant INTEGER,
	module_count     INTEGER,
	module_sizes     TEXT
);
`

func openSQLite(target string) (*sqliteSink, error) {
	db, err := sql.Open("sqlite3", target+"?_journal_mode=WAL&_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("failed to open result database: %w", err)
	}
	if _, err := db.Exec(resultsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure results table: %w", err)
	}
	return &sqliteSink{db: db}, nil
}

// Append implements Sink.
func (s *sqliteSink) Append(ctx context.Context, rec Record) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	var sizes []byte
	if rec.ModuleSizes != nil {
		if sizes, err = json.Marshal(rec.ModuleSizes); err != nil {
			return fmt.Errorf("failed to marshal module sizes: %w", err)
		}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (
			batch_id, job_id, compendium, annmat, params, seed, status,
			failed_stage, reason, anns_significant, mods_significant,
			module_count, module_sizes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BatchID, rec.JobID, rec.Compendium, rec.Annmat, string(params),
		rec.Seed, rec.Status,
		nullString(rec.FailedStage), nullString(rec.Reason),
		nullInt(rec.AnnsSignificant), nullInt(rec.ModsSignificant),
		nullInt(rec.ModuleCount), nullBytes(sizes),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result record: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *sqliteSink) Close() error {
	return s.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
