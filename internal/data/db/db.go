package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/originality-backend/internal/platform/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MemoryDSN names a private in-memory sqlite database shared by all
// connections of one *gorm.DB.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

type Config struct {
	Driver string
	DSN    string
	// SlowThreshold for gorm's query log. Zero uses one second.
	SlowThreshold time.Duration
	Silent        bool
}

// Open connects and migrates. An empty sqlite DSN opens an in-memory store
// that lives as long as the process.
func Open(cfg Config, logg *logger.Logger) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	level := gormLogger.Warn
	if cfg.Silent {
		level = gormLogger.Silent
	}
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		dsn := strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			dsn = MemoryDSN("originality")
		}
		db, err = gorm.Open(sqlite.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// One writer at a time; also keeps the in-memory database alive.
		sqlDB.SetMaxOpenConns(1)
	case DriverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("DB_DSN is required for postgres")
		}
		db, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	if err := AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if logg != nil {
		logg.Info("database ready", "driver", driver)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
