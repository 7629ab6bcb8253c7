package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Store provides durable persistence for topology entities.
// All methods are safe for concurrent use; SQLite serializes writers.
type Store struct {
	db *sql.DB
}

// New creates a store backed by an open SQLite connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// wrapInsertErr maps SQLite constraint violations on insert to ErrConflict.
func wrapInsertErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireAffected maps a zero-row result to ErrNotFound.
func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
