package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const RunsTableSchema = `
	CREATE TABLE IF NOT EXISTS allocation_runs (
		id TEXT NOT NULL PRIMARY KEY,
		model TEXT NOT NULL,
		weeks INTEGER NOT NULL,
		budget DOUBLE NOT NULL,
		kpi_before DOUBLE NOT NULL,
		kpi_after DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
`

var bootQueries = []string{
	RunsTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	db, err := sql.Open("sqlite", settings.DbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	for _, query := range bootQueries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying boot schema: %w", err)
		}
	}
	return db, nil
}
