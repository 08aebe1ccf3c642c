// file: internals/features/school/reports/cache/report_cache.go
package cache

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"schooldesk_backend/internals/features/school/store"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "schooldesk:report:"

// ReportCache holds computed marksheets and statistics per class. Every
// write that changes a class's marks drops the whole class.
type ReportCache interface {
	// Get decodes a cached value into dst; ok is false on a miss.
	Get(ctx context.Context, key string, dst any) (ok bool, err error)
	Set(ctx context.Context, key string, v any) error
	InvalidateClass(ctx context.Context, classID uuid.UUID) error
}

// Key builds "schooldesk:report:<class>:<part>:<part>...".
func Key(classID uuid.UUID, parts ...string) string {
	return keyPrefix + classID.String() + ":" + strings.Join(parts, ":")
}

// InvalidateLevel drops every class of a level and year; exam
// configurations are per level, so one change touches all its sections.
// Failures are logged only, a stale entry expires on its own.
func InvalidateLevel(ctx context.Context, c ReportCache, st store.Store, level, academicYear string) {
	classes, err := st.ListClasses(ctx, store.ClassFilter{AcademicYear: academicYear})
	if err != nil {
		log.Printf("[CACHE] WARN list classes level=%s year=%s: %v", level, academicYear, err)
		return
	}
	for _, cl := range classes {
		if cl.ClassLevel != level {
			continue
		}
		if err := c.InvalidateClass(ctx, cl.ClassID); err != nil {
			log.Printf("[CACHE] WARN invalidate class=%s: %v", cl.ClassID, err)
		}
	}
}

/* =========================
   Redis
========================= */

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) ReportCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisCache{rdb: rdb, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := sonic.Unmarshal(b, dst); err != nil {
		// stale layout; treat as a miss and let the caller overwrite it
		log.Printf("[CACHE] WARN undecodable entry %s: %v", key, err)
		return false, nil
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

func (c *redisCache) InvalidateClass(ctx context.Context, classID uuid.UUID) error {
	pattern := keyPrefix + classID.String() + ":*"
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return err
			}
			deleted += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	if deleted > 0 {
		log.Printf("[CACHE] invalidated class=%s keys=%d", classID, deleted)
	}
	return nil
}

/* =========================
   In-process
========================= */

type memoryEntry struct {
	body    []byte
	expires time.Time
}

// memoryCache keeps encoded entries in the process. It only suits a single
// instance (STORE_DRIVER=memory and tests).
type memoryCache struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryCache(ttl time.Duration) ReportCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &memoryCache{items: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (c *memoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	e, ok := c.items[key]
	if ok && !c.now().Before(e.expires) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := sonic.Unmarshal(e.body, dst); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = memoryEntry{body: b, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) InvalidateClass(_ context.Context, classID uuid.UUID) error {
	prefix := keyPrefix + classID.String() + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}

/* =========================
   Disabled
========================= */

type noopCache struct{}

// NewNoopCache is used when REDIS_ADDR is not set.
func NewNoopCache() ReportCache { return noopCache{} }

func (noopCache) Get(context.Context, string, any) (bool, error)   { return false, nil }
func (noopCache) Set(context.Context, string, any) error           { return nil }
func (noopCache) InvalidateClass(context.Context, uuid.UUID) error { return nil }
