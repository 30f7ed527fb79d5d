package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/totegamma/mediadb/internal/infra/database/models"
)

// NewPostgres opens dsn, retrying up to retries times while the server comes up.
func NewPostgres(ctx context.Context, dsn string, retries uint64, log hclog.Logger) (*gorm.DB, error) {
	var db *gorm.DB

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	err := backoff.RetryNotify(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         NewGormLogger(log.Named("gorm")),
		})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		return sqlDB.PingContext(ctx)
	}, policy, func(err error, wait time.Duration) {
		log.Warn("postgres not ready, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// NewSqlite opens the sqlite database at path. ":memory:" keeps everything in process.
func NewSqlite(path string, log hclog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(log.Named("gorm")),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// sqlite allows a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Document{},
	)
}
