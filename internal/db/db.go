package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/domain/user"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type Config struct {
	// Driver is "postgres" or "sqlite".
	Driver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string
	PostgresSSLMode  string

	SQLitePath string
}

func (c Config) PostgresDSN() string {
	ssl := c.PostgresSSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresName, ssl)
}

// Open connects with the configured driver.
func Open(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "postgres", "postgresql":
		log.Info("Connecting to Postgres...", "host", cfg.PostgresHost, "db", cfg.PostgresName)
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite", "sqlite3":
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = "file:blueprintx.db?cache=shared"
		}
		log.Info("Opening SQLite database...", "path", path)
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		return nil, fmt.Errorf("open database: %w", err)
	}
	return gdb, nil
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(log *logger.Logger, gdb *gorm.DB) error {
	log.Info("Auto migrating tables...")
	if err := gdb.AutoMigrate(
		&user.User{},
		&syllabus.SyllabusAnalysis{},
		&syllabus.StudyPlan{},
	); err != nil {
		log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
