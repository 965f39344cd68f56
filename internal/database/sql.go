package database

import (
	"embed"
	"fmt"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Models lists every table managed by the application, in creation order.
var Models = []any{
	&models.User{},
	&models.TwoFactorCredential{},
	&models.TwoFactorBackupCode{},
	&models.Brand{},
	&models.Category{},
	&models.Vehicle{},
	&models.RentalPricingOption{},
	&models.Promo{},
	&models.InfoRequest{},
	&models.Settings{},
	&models.WorkerRun{},
}

func InitDB(config models.DatabaseConfiguration) *gorm.DB {
	db, err := Open(config)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.String("type", config.Type), zap.Error(err))
	}

	if err = Migrate(db, config.Type); err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}

	return db
}

func Open(config models.DatabaseConfiguration) (*gorm.DB, error) {
	gormConfig := &gorm.Config{TranslateError: true}

	switch config.Type {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			config.Host, config.User, config.Password, config.Name, config.Port, config.SSLMode,
		)
		return gorm.Open(postgres.Open(dsn), gormConfig)
	case "sqlite":
		return gorm.Open(sqlite.Open(config.Name), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database type %q", config.Type)
	}
}

// Migrate applies the embedded goose migrations on postgres. SQLite databases are
// used for development and tests and are created from the models instead.
func Migrate(db *gorm.DB, dbType string) error {
	if dbType != "postgres" {
		return db.AutoMigrate(Models...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})
	if err = goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err = goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...any) {
	zap.L().Fatal(fmt.Sprintf(format, v...))
}

func (gooseLogger) Printf(format string, v ...any) {
	zap.L().Info(fmt.Sprintf(format, v...))
}
