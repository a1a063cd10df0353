package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	tx   *sql.Tx
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens or creates a SQLite database at the given path
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, err
	}

	// Initialize schema
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection, rolling back an open batch
func (db *DB) Close() error {
	if db.tx != nil {
		_ = db.tx.Rollback()
		db.tx = nil
	}
	return db.conn.Close()
}

// Clear removes all data from the database
func (db *DB) Clear() error {
	_, err := db.q().ExecContext(context.Background(),
		"DELETE FROM edges; DELETE FROM methods; DELETE FROM classes; DELETE FROM source;")
	return err
}

// Begin starts a batch: writes go into one transaction until Commit.
func (db *DB) Begin() error {
	if db.tx != nil {
		return errors.New("batch already open")
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	db.tx = tx
	return nil
}

// Commit ends the current batch
func (db *DB) Commit() error {
	if db.tx == nil {
		return errors.New("no open batch")
	}
	err := db.tx.Commit()
	db.tx = nil
	return err
}

// Rollback discards the current batch
func (db *DB) Rollback() error {
	if db.tx == nil {
		return nil
	}
	err := db.tx.Rollback()
	db.tx = nil
	return err
}

// Conn returns the underlying database connection for advanced queries
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) q() execer {
	if db.tx != nil {
		return db.tx
	}
	return db.conn
}
