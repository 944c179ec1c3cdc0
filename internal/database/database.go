package database

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"crmnice/internal/domain"
	"crmnice/internal/pkg/logger"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

func Connect(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		logger.Info("connecting to PostgreSQL")
		return gorm.Open(postgres.Open(dsn), gormConfig())
	}

	logger.Info("using SQLite for local development", zap.String("dsn", dsn))

	db, err := gorm.Open(SQLiteDialector(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	// one writer at a time keeps SQLite from returning SQLITE_BUSY under load
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// SQLiteDialector opens dsn with the pure-Go modernc driver. Times are
// written in SQLite's own format unless the DSN picks one.
func SQLiteDialector(dsn string) gorm.Dialector {
	if !strings.Contains(dsn, "_time_format=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}
	return gormsqlite.New(gormsqlite.Config{
		DriverName: "sqlite",
		DSN:        dsn,
	})
}

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.Country{},
		&domain.City{},
		&domain.Category{},
		&domain.Status{},
		&domain.User{},
		&domain.UserProfile{},
		&domain.Company{},
		&domain.CompanyPhone{},
		&domain.CompanyAddress{},
		&domain.CompanyComment{},
		&domain.UserFavoriteCompany{},
		&domain.Counter{},
	}
}

// Migrate creates or updates the schema and makes sure the client id
// counter exists and is not behind the companies already stored.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return SeedCounters(db)
}

func SeedCounters(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var maxID int64
		if err := tx.Model(&domain.Company{}).
			Select("COALESCE(MAX(id), 0)").
			Scan(&maxID).Error; err != nil {
			return fmt.Errorf("read max company id: %w", err)
		}

		var counter domain.Counter
		err := tx.Where("name = ?", domain.ClientIDCounter).Limit(1).Find(&counter).Error
		if err != nil {
			return fmt.Errorf("read counter: %w", err)
		}
		if counter.Name == "" {
			return tx.Create(&domain.Counter{Name: domain.ClientIDCounter, Value: maxID}).Error
		}
		if counter.Value < maxID {
			return tx.Model(&domain.Counter{}).
				Where("name = ?", domain.ClientIDCounter).
				Update("value", maxID).Error
		}
		return nil
	})
}
