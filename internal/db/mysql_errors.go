package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// IsDuplicateKey reports a unique-key violation. When key is non-empty the violated
// index name must match too.
func IsDuplicateKey(err error, key string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDupEntry {
		return false
	}
	return key == "" || strings.Contains(me.Message, key)
}

// IsLockConflict reports lock wait timeouts and deadlocks, both of which mean another
// transaction holds the same rows.
func IsLockConflict(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == errLockWaitTimeout || me.Number == errDeadlock
}
