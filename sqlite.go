//go:build sqlite

package main

// sqlite support

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newDialector(dsn string) gorm.Dialector {
	return sqlite.Open(dsn)
}

func configureDB(db *gorm.DB) error {
	// sqlite does not enforce foreign keys unless asked
	return db.Exec("PRAGMA foreign_keys = ON").Error
}
