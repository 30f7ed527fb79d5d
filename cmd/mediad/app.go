package main

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/mediadb"
	"github.com/totegamma/mediadb/internal/config"
	"github.com/totegamma/mediadb/internal/infra/database"
	"github.com/totegamma/mediadb/internal/infra/gateway"
	"github.com/totegamma/mediadb/internal/infra/repository"
	"github.com/totegamma/mediadb/internal/service"
	"github.com/totegamma/mediadb/internal/usecase"
)

// resources collects what serve opens so it can be released in reverse order.
type resources struct {
	closers []func() error
}

func (r *resources) add(closer func() error) {
	r.closers = append(r.closers, closer)
}

func (r *resources) Close() error {
	var result *multierror.Error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func openSQL(ctx context.Context, cfg config.Store, logger hclog.Logger) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.StoreDriverPostgres:
		return database.NewPostgres(ctx, cfg.PostgresDsn, cfg.ConnectRetries, logger)
	case config.StoreDriverSqlite:
		return database.NewSqlite(cfg.SqlitePath, logger)
	default:
		return nil, errors.Errorf("store driver %q has no schema", cfg.Driver)
	}
}

func closeSQL(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}

func openStore(ctx context.Context, cfg config.Store, res *resources, logger hclog.Logger) (mediadb.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverPostgres, config.StoreDriverSqlite:
		db, err := openSQL(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		res.add(closeSQL(db))
		if err := database.Migrate(db); err != nil {
			return nil, errors.Wrap(err, "migrate")
		}
		return repository.NewRecordRepository(db), nil

	case config.StoreDriverRedis:
		rdb, err := database.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		res.add(rdb.Close)
		return repository.NewRedisRecordRepository(rdb), nil

	case config.StoreDriverMemcached:
		mc, err := database.NewMemcached(cfg.MemcachedAddr)
		if err != nil {
			return nil, err
		}
		res.add(mc.Close)
		return repository.NewMemcachedRecordRepository(mc), nil

	case config.StoreDriverMemory:
		logger.Warn("using the in-memory store, records are lost on restart")
		return repository.NewMemoryRecordRepository(), nil

	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openEvents returns the configured publishers and, when redis events are on,
// the signal service backing /realtime.
func openEvents(ctx context.Context, cfg config.Config, res *resources, logger hclog.Logger) ([]usecase.EventPublisher, *service.SignalService, error) {
	var publishers []usecase.EventPublisher
	var signal *service.SignalService

	if cfg.Events.Redis {
		rdb, err := database.NewRedis(ctx, cfg.Events.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		if err != nil {
			return nil, nil, errors.Wrap(err, "events redis")
		}
		res.add(rdb.Close)
		signal = service.NewSignalService(rdb, cfg.Events.RedisChannel, logger)
		publishers = append(publishers, signal)
	}

	if len(cfg.Events.KafkaBrokers) > 0 {
		kafka, err := gateway.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		res.add(kafka.Close)
		publishers = append(publishers, kafka)
	}

	return publishers, signal, nil
}
