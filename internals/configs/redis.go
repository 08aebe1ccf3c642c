package configs

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns nil when REDIS_ADDR is unset or unreachable; callers
// then fall back to in-process caches.
func ConnectRedis() *redis.Client {
	addr := GetEnv("REDIS_ADDR")
	if addr == "" {
		log.Println("[WARN] REDIS_ADDR not set, report cache disabled and previews kept in memory")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: GetEnv("REDIS_PASSWORD"),
		DB:       GetEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[ERROR] redis %s unreachable, continuing without it: %v", addr, err)
		_ = rdb.Close()
		return nil
	}
	log.Printf("[INFO] redis connected at %s", addr)
	return rdb
}
