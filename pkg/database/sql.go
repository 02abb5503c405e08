// Package database opens the SQL and Redis connections used by the portal.
package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resource-portal-go/internal/config"
	"resource-portal-go/pkg/log"
)

// OpenSQL connects to the configured relational database and applies pool settings.
func OpenSQL(cfg config.SQLConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	// TranslateError surfaces unique violations as gorm.ErrDuplicatedKey on every driver.
	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.LogQueries {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	if cfg.Driver == "sqlite" && isMemorySQLite(cfg.DSN) {
		// every connection to an in-memory database sees its own copy
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Infof("%s database connected", cfg.Driver)
	return db, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(SQLiteDSN(dsn)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// sqliteDefaults let a pooled SQLite file serve concurrent requests: WAL keeps
// readers off the writer, busy_timeout waits for the lock instead of failing,
// and immediate transactions take the write lock at BEGIN so read-then-write
// transactions serialize instead of deadlocking on upgrade.
var sqliteDefaults = []struct{ key, value string }{
	{"_journal_mode", "WAL"},
	{"_busy_timeout", "10000"},
	{"_txlock", "immediate"},
}

// SQLiteDSN appends the pooling defaults that dsn does not already set.
// In-memory databases are returned unchanged.
func SQLiteDSN(dsn string) string {
	if isMemorySQLite(dsn) {
		return dsn
	}
	for _, p := range sqliteDefaults {
		if strings.Contains(dsn, p.key+"=") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p.key + "=" + p.value
	}
	return dsn
}

func isMemorySQLite(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("close database", err)
	}
}
