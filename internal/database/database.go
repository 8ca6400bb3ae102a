package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/config"
	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	mysqldriver "github.com/go-sql-driver/mysql"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqliteForeignKeysPragma = "_pragma=foreign_keys(1)"

var (
	errMissingPath = errors.New("database path is required")
	errMissingDSN  = errors.New("database dsn is required for mysql")
)

// Open connects to the configured store, migrates the schema and applies
// pending data migrations.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case config.DriverMySQL:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	default:
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized",
			zap.String("driver", cfg.Driver),
			zap.String("target", describeTarget(cfg)))
	}
	return db, nil
}

// Migrate creates the tables owned by the application and runs the ledgered migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	models := append(tracking.Models(), &migrationRecord{})
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return applyMigrations(db, logger)
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		dsn, err := normalizeMySQLDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case config.DriverSQLite, "":
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, errMissingPath
		}
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN enables foreign key enforcement for every pooled connection.
func sqliteDSN(path string) string {
	if strings.Contains(path, "foreign_keys") {
		return path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + sqliteForeignKeysPragma
}

// normalizeMySQLDSN forces time parsing in UTC so DATETIME columns round-trip.
func normalizeMySQLDSN(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errMissingDSN
	}
	parsed, err := mysqldriver.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	return parsed.FormatDSN(), nil
}

func describeTarget(cfg config.DatabaseConfig) string {
	if cfg.Driver != config.DriverMySQL {
		return cfg.Path
	}
	parsed, err := mysqldriver.ParseDSN(cfg.DSN)
	if err != nil {
		return "mysql"
	}
	return fmt.Sprintf("%s/%s", parsed.Addr, parsed.DBName)
}
