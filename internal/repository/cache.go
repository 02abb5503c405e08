package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist remembers revoked login sessions until their last token would have expired.
type TokenBlacklist interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

type redisTokenBlacklist struct {
	redisClient *redis.Client
}

// NewTokenBlacklist keeps revocations in Redis with a TTL per entry.
func NewTokenBlacklist(redisClient *redis.Client) TokenBlacklist {
	return &redisTokenBlacklist{redisClient: redisClient}
}

func blacklistKey(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return "auth:blacklist:" + hex.EncodeToString(sum[:])
}

func (b *redisTokenBlacklist) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.redisClient.Set(ctx, blacklistKey(sessionID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *redisTokenBlacklist) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := b.redisClient.Exists(ctx, blacklistKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}

// UnreadCountCache caches each user's unread notification count.
//
// Every Invalidate bumps a per-user generation. A count read from the database
// is stored only if the generation is still the one observed before the read,
// so a write that commits in between cannot be masked by a stale count.
type UnreadCountCache interface {
	Get(ctx context.Context, userID string) (int64, bool, error)
	// Generation returns the user's current cache generation.
	Generation(ctx context.Context, userID string) (int64, error)
	// SetIfGeneration stores count only while the generation still equals gen.
	SetIfGeneration(ctx context.Context, userID string, gen, count int64, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, userIDs ...string) error
}

// generationTTL bounds how long an idle user's generation key lives.
const generationTTL = 24 * time.Hour

var setIfGenerationScript = redis.NewScript(`
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type redisUnreadCountCache struct {
	redisClient *redis.Client
}

// NewUnreadCountCache creates the Redis-backed unread count cache.
func NewUnreadCountCache(redisClient *redis.Client) UnreadCountCache {
	return &redisUnreadCountCache{redisClient: redisClient}
}

func unreadKey(userID string) string {
	return "notifications:unread:" + userID
}

func unreadGenerationKey(userID string) string {
	return "notifications:unread-gen:" + userID
}

// Get returns the cached count and whether one was present.
func (c *redisUnreadCountCache) Get(ctx context.Context, userID string) (int64, bool, error) {
	val, err := c.redisClient.Get(ctx, unreadKey(userID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

func (c *redisUnreadCountCache) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.redisClient.Get(ctx, unreadGenerationKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *redisUnreadCountCache) SetIfGeneration(ctx context.Context, userID string, gen, count int64, ttl time.Duration) (bool, error) {
	stored, err := setIfGenerationScript.Run(ctx, c.redisClient,
		[]string{unreadKey(userID), unreadGenerationKey(userID)},
		strconv.FormatInt(gen, 10), count, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate drops the cached counts and bumps each user's generation.
func (c *redisUnreadCountCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, unreadGenerationKey(id))
			pipe.Expire(ctx, unreadGenerationKey(id), generationTTL)
			pipe.Del(ctx, unreadKey(id))
		}
		return nil
	})
	return err
}
