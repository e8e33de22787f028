package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"storefront/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects the database. A postgres DSN wins over the sqlite path.
type Options struct {
	DatabaseURL string
	Path        string
	Debug       bool
}

// sqlite pragmas: foreign keys carry the cascade / set-null rules, immediate
// transactions serialize cart writers instead of failing on lock upgrade.
const sqliteParams = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

// Open connects to the database without migrating it.
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn), TranslateError: true}
	if opts.Debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	if strings.HasPrefix(opts.DatabaseURL, "postgres") {
		db, err := gorm.Open(postgres.Open(opts.DatabaseURL), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		slog.Info("Database connected", "driver", "postgres")
		return db, nil
	}

	dbPath := opts.Path
	if dbPath == "" {
		dbPath = "database.db"
	}

	// sqlite does not create missing parent directories of the file.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open("file:"+dbPath+"?"+sqliteParams), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}
	slog.Info("Database connected", "driver", "sqlite", "path", dbPath)
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Product{}, &models.Gallery{},
		&models.Review{}, &models.FavoriteProduct{}, &models.Mail{}, &models.Customer{},
		&models.Order{}, &models.OrderProduct{}, &models.City{}, &models.ShippingAddress{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// InitDatabase opens and migrates in one step.
func InitDatabase(opts Options) (*gorm.DB, error) {
	db, err := Open(opts)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
