package cmd

import (
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/lock"
	"github.com/redis/go-redis/v9"
)

// CloseFunc releases whatever backs a locker.
type CloseFunc func() error

// NewLocker builds the per-template deployment lock.
func NewLocker(provider, redisAddr string) (lock.Locker, CloseFunc, error) {
	switch provider {
	case "", "memory":
		return lock.NewMemory(), func() error { return nil }, nil
	case "redis":
		if redisAddr == "" {
			return nil, nil, errors.New("redis lock provider requires an address")
		}

		client := redis.NewClient(&redis.Options{Addr: redisAddr})

		return lock.NewRedis(client, "flowforge:lock:", lock.DefaultTTL), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported lock provider %q", provider)
	}
}
