package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// NewSQLite opens a single-file SQLite database. The pool is pinned to one
// connection so writes from the update loop and the scheduler never race
// for the file lock.
func NewSQLite(path string) (*sqlx.DB, error) {
	if path == "" {
		path = "bot.db"
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := ping(db); err != nil {
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return db, nil
}
