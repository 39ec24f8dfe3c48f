package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"novasport-checker/config"
	"novasport-checker/internal/model"
)

// Init opens the relay database and runs migrations. PostgreSQL DSNs
// (URL or key=value form) use the postgres driver, anything else is a SQLite path.
func Init(cfg *config.DatabaseConfig, log hclog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	gormLogger := logger.New(
		log.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(Dialector(cfg.DSN), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Debug("running database migrations", "driver", db.Dialector.Name())
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database initialization complete", "driver", db.Dialector.Name())
	return db, nil
}

// Migrate creates or updates the relay tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Token{},
		&model.Sport{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// Dialector picks the gorm driver for dsn.
func Dialector(dsn string) gorm.Dialector {
	if IsPostgresDSN(dsn) {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// IsPostgresDSN reports whether dsn addresses a PostgreSQL server.
func IsPostgresDSN(dsn string) bool {
	d := strings.TrimSpace(dsn)
	lower := strings.ToLower(d)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	for _, kv := range strings.Fields(d) {
		if strings.HasPrefix(kv, "host=") || strings.HasPrefix(kv, "dbname=") {
			return true
		}
	}
	return false
}
