// Package testutil opens migrated test databases and seeds library rows.
package testutil

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbpkg "github.com/yungbote/library-backend/internal/data/db"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

const postgresDSNEnv = "TEST_POSTGRES_DSN"

var sharedLogger = sync.OnceValues(func() (*logger.Logger, error) {
	return logger.New("test")
})

// Logger returns one process-wide test logger.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := sharedLogger()
	if err != nil {
		tb.Fatalf("test logger: %v", err)
	}
	return log
}

// open connects and migrates. maxConns > 0 caps the pool before migrating.
func open(d gorm.Dialector, maxConns int) (*gorm.DB, error) {
	db, err := gorm.Open(d, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(maxConns)
	}
	if err := dbpkg.AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

var sharedPostgres = sync.OnceValues(func() (*gorm.DB, error) {
	return open(postgres.Open(os.Getenv(postgresDSNEnv)), 0)
})

// DB returns the shared, migrated Postgres database. Tests using it are
// skipped unless TEST_POSTGRES_DSN is set; wrap writes in Tx.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	if os.Getenv(postgresDSNEnv) == "" {
		tb.Skip("set " + postgresDSNEnv + " to run Postgres tests")
	}
	db, err := sharedPostgres()
	if err != nil {
		tb.Fatalf("postgres test db: %v", err)
	}
	return db
}

// SQLite opens a private in-memory database with the full schema. The pool
// holds one connection, so transactions run one at a time.
func SQLite(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), 1)
	if err != nil {
		tb.Fatalf("sqlite test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Tx begins a transaction that is rolled back when the test ends.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin: %v", tx.Error)
	}
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}
