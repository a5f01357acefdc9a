// Package database provides storage backends for the source health ledger.
package database

import (
	"fmt"

	"github.com/bryan-buckman/iantel/internal/model"
)

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// Source health operations
	RecordSourceStatus(st model.SourceStatus) error
	ListSourceStatus() ([]model.SourceStatus, error)

	// Settings operations
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Open opens the store selected by driver ("sqlite" or "postgres").
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return New(dsn)
	case "postgres":
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
