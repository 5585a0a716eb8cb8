package ninjadb

import (
	"github.com/redis/go-redis/v9"
)

// RedisOptions returns redis.Options for the file store's id sequences.
//
// Settings come from the environment through ConfigFromEnv:
//   - REDIS_ADDR (no default: an empty address disables Redis sequences)
//   - REDIS_PASSWORD (default: "")
//   - REDIS_DB (default: 0)
//
// Build redis.Options directly for Cluster, Sentinel or TLS setups and
// hand the client to NewRedisSequence.
func RedisOptions(cfg FileStoreConfig) *redis.Options {
	return &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
