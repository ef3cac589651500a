package config

import (
	"time"

	"github.com/go-redis/redis"
)

// RedisConfig is the connection configuration of a redis-backed transaction store.
// Zero durations leave the client defaults in place.
type RedisConfig struct {
	// A single address, the seed list of a cluster, or the sentinels of MasterName.
	Addrs []string `validate:"required"`
	// Ignored by cluster clients.
	DB       int `validate:"gte=0,lte=16"`
	Password string
	// If set, Addrs are sentinel addresses and the client connects to this master.
	MasterName string

	// Retries of a failed command; the recorder retries whole transactions on top of this.
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration `validate:"omitempty,gtefield=MinRetryBackoff"`

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize     int `validate:"required"`
	MinIdleConns int `validate:"ltefield=PoolSize"`
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

// AsUniversalOptions returns the options of a client connecting as configured by rc.
// The kind of client created from them depends on Addrs and MasterName; see redis.NewUniversalClient.
func (rc RedisConfig) AsUniversalOptions() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:      rc.Addrs,
		DB:         rc.DB,
		Password:   rc.Password,
		MasterName: rc.MasterName,

		MaxRetries:      rc.MaxRetries,
		MinRetryBackoff: rc.MinRetryBackoff,
		MaxRetryBackoff: rc.MaxRetryBackoff,

		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,

		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		PoolTimeout:  rc.PoolTimeout,
		IdleTimeout:  rc.IdleTimeout,
	}
}
