package db

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFailure  = "UNIQUE constraint failed"
	pgUniqueFailureText  = "duplicate key value violates unique constraint"
	mysqlDuplicateString = "Error 1062"
)

// IsDuplicateKeyErr reports whether err is a unique-index violation from any
// of the supported drivers, typed or flattened to text.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var (
		pgErr *pgconn.PgError
		pqErr *pq.Error
		myErr *mysqldriver.MySQLError
	)
	switch {
	case errors.As(err, &pgErr):
		return pgErr.Code == pgUniqueViolation
	case errors.As(err, &pqErr):
		return string(pqErr.Code) == pgUniqueViolation
	case errors.As(err, &myErr):
		return myErr.Number == mysqlDuplicateEntry
	}

	msg := err.Error()
	for _, marker := range []string{sqliteUniqueFailure, pgUniqueFailureText, mysqlDuplicateString} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
