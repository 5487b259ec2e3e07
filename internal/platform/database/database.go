package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// OpenPostgres opens a lib/pq pool and wraps it with GORM.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres connection: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm on postgres: %w", err)
	}
	return db, nil
}

// OpenSQLite opens the embedded database file. Writes are serialized on a
// single connection; WAL keeps readers unblocked.
func OpenSQLite(dsn string) (*sql.DB, error) {
	dsn = SQLiteDSN(dsn)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// SQLiteDSN turns a bare path into a DSN with the default pragmas.
func SQLiteDSN(raw string) string {
	dsn := strings.TrimSpace(raw)
	if dsn == "" {
		dsn = "guard.db"
	}
	if strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_txlock=immediate", dsn)
}
