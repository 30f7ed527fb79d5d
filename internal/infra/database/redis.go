package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func NewRedis(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", addr)
	}
	return client, nil
}
