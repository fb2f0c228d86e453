package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the ledger database named by url. Postgres DSNs get the
// postgres driver; anything else is treated as a sqlite file path.
func Open(url string) (*gorm.DB, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return Connect(postgres.Open(url))
	}
	return Connect(sqlite.Open(url))
}

// Connect opens the ledger database over the given dialector (postgres in
// deployment, sqlite for local mode and tests) and applies migrations.
func Connect(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("unable to open ledger database: %w", err)
	}

	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("unable to migrate ledger database: %w", err)
	}

	return db, nil
}
