package database

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
)

func NewMemcached(server string) (*memcache.Client, error) {
	client := memcache.New(server)
	if err := client.Ping(); err != nil {
		return nil, errors.Wrapf(err, "ping memcached at %s", server)
	}
	return client, nil
}
