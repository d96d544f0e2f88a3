package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adsoptimizer/internal/config"
)

const slowQueryThreshold = 500 * time.Millisecond

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to postgres. Slow queries and errors are reported through log
// when it is non-nil.
func Open(cfg config.DBConfig, log *zap.Logger) (*DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	gormLogger := logger.Default.LogMode(logger.Silent)
	if log != nil {
		gormLogger = logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(ctx context.Context, db *DB) error {
	if db == nil || db.SQL == nil {
		return fmt.Errorf("database not initialized")
	}
	return db.SQL.PingContext(ctx)
}

// SetTimezone sets the session time zone. tz must be a known IANA name.
func SetTimezone(db *DB, tz string) error {
	tz = strings.TrimSpace(tz)
	if tz == "" || db == nil || db.SQL == nil {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid db timezone %q: %w", tz, err)
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + tz + "'")
	return err
}
