package store

import (
	"database/sql"
	"errors"

	gate "github.com/dogecoinfoundation/paygate/pkg"

	"github.com/mattn/go-sqlite3"
)

// NewSQLiteStore returns a gate.Store backed by a sqlite file (or ":memory:").
func NewSQLiteStore(fileName string) (SQLStore, error) {
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		return SQLStore{}, sqliteErr(err, "opening database")
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" alive.
	db.SetMaxOpenConns(1)
	if err := setup(db, sqliteErr); err != nil {
		db.Close()
		return SQLStore{}, err
	}
	return SQLStore{db: db, dbErr: sqliteErr}, nil
}

func sqliteErr(err error, where string) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrConstraint:
			return gate.NewErr(gate.DBConflict, "SQLiteStore error: %s: %v", where, err)
		}
	}
	return gate.NewErr(gate.NotAvailable, "SQLiteStore error: %s: %v", where, err)
}
