package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"connector/internal/middleware"
	"connector/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix = "user:%d"
	PostKeyPrefix = "post:%d"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute

	// genTTL outlives any fill that could race with a write.
	genTTL = 24 * time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// genKey holds the write generation of key. Every invalidation bumps it.
func genKey(key string) string {
	return key + ":gen"
}

// keyKind reduces "post:12" to "post" for metric labels.
func keyKind(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// GetJSON loads key into dest. It reports false on a miss, a Redis error, or
// when no client is configured.
func GetJSON(ctx context.Context, key string, dest any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		middleware.Logger.WarnContext(ctx, "cache decode failed", "key", key, "error", err)
		client.Del(ctx, key)
		return false
	}
	return true
}

// Aside implements cache-aside: on a hit dest is filled from Redis, on a miss
// fetch fills dest and the result is written back. fetch errors are returned
// untouched and never cached.
//
// The write-back only lands if no invalidation of key happened while fetch
// ran, so a reader that loaded a row before a writer committed cannot put
// the old value back after the writer's invalidation.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	kind := keyKind(key)
	if GetJSON(ctx, key, dest) {
		observability.CacheLookups.WithLabelValues(kind, "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(kind, "miss").Inc()

	// Snapshot the generation before reading the source of truth.
	gen, genOK := generation(ctx, key)

	if err := fetch(); err != nil {
		return err
	}
	if genOK {
		setIfGeneration(ctx, key, gen, dest, ttl)
	}
	return nil
}

// generation returns the current write generation of key ("" if never
// written). ok is false when there is no client or Redis failed.
func generation(ctx context.Context, key string) (string, bool) {
	if client == nil {
		return "", false
	}
	gen, err := client.Get(ctx, genKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.Logger.WarnContext(ctx, "cache generation read failed", "key", key, "error", err)
		return "", false
	}
	return gen, true
}

// setIfGeneration writes value under key only while key's generation still
// equals gen. WATCH aborts the write if an invalidation lands in between.
func setIfGeneration(ctx context.Context, key, gen string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}

	gk := genKey(key)
	err = client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			return nil
		})
		return err
	}, gk)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		middleware.Logger.DebugContext(ctx, "cache fill skipped after concurrent write", "key", key)
	default:
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

var errStaleFill = errors.New("cache: generation changed during fill")

// Invalidate drops key and bumps its generation so in-flight fills that
// started earlier are discarded.
func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	gk := genKey(key)
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gk)
		pipe.Expire(ctx, gk, genTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidate failed", "key", key, "error", err)
	}
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
