// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let the service layer tell apart
// "row absent", "row changed underneath you" and "row already exists"
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned by compare-and-swap writes when the row's
// version (or status) no longer matches what the caller validated against.
// Callers re-read the row and run their checks again.
var ErrVersionConflict = errors.New("version conflict")

// ErrDuplicate is returned when a unique key rejects an insert, such as a
// second payment for the same auction.
var ErrDuplicate = errors.New("duplicate")

// errDupEntry is MySQL's ER_DUP_ENTRY.
const errDupEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
