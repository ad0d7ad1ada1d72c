package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spigell/gigboard/internal/presence"
)

const (
	onlineHashKey     = "gigboard:presence:online"
	lastSeenKeyPrefix = "gigboard:presence:lastseen:"
	// last_seen is kept for a week after the last write.
	lastSeenTTL = 7 * 24 * time.Hour
)

// Redis keeps every online flag in one hash so a snapshot is a single HGETALL.
type Redis struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client, now: time.Now}
}

func lastSeenKey(userID string) string {
	return lastSeenKeyPrefix + userID
}

func flagValue(online bool) string {
	if online {
		return "1"
	}
	return "0"
}

func (s *Redis) WriteOnlineFlag(ctx context.Context, userID string, online bool) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, onlineHashKey, userID, flagValue(online))
		pipe.Set(ctx, lastSeenKey(userID), s.now().Unix(), lastSeenTTL)
		return nil
	})

	return presence.WriteError(userID, err)
}

func (s *Redis) ReadAllOnlineFlags(ctx context.Context) ([]presence.Flag, error) {
	values, err := s.client.HGetAll(ctx, onlineHashKey).Result()
	if err != nil {
		return nil, presence.ReadError(err)
	}

	return parseFlagHash(values), nil
}

func parseFlagHash(values map[string]string) []presence.Flag {
	flags := make([]presence.Flag, 0, len(values))
	for userID, v := range values {
		flags = append(flags, presence.Flag{UserID: userID, Online: v == "1"})
	}

	return sortFlags(flags)
}
