// Package repository is the data access layer over MySQL. Not-found is
// reported as a nil result; the sentinel values below cover the cases
// handlers must tell apart from plain storage failures.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateUserName is returned when a user name is already taken.
// Handlers and the CLI translate it into a conflict.
var ErrDuplicateUserName = errors.New("user name already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
