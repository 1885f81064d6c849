package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix namespaces conversation keys.
const DefaultRedisPrefix = "bookingbot:conv:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps states as JSON strings so several bot replicas share them
// and they survive restarts. Keys expire after TTL when it is positive.
type RedisStore struct {
	client redisClient
	Prefix string
	TTL    time.Duration
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, Prefix: DefaultRedisPrefix, TTL: ttl}
}

// NewRedisClient connects and pings with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

func (r *RedisStore) key(channelID int64) string {
	return r.Prefix + strconv.FormatInt(channelID, 10)
}

// Load implements StateStore.
func (r *RedisStore) Load(ctx context.Context, channelID int64) (State, error) {
	raw, err := r.client.Get(ctx, r.key(channelID)).Result()
	if errors.Is(err, redis.Nil) {
		return idle(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load conversation state: %w", err)
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		// A corrupt entry must not trap the channel.
		return idle(), nil
	}
	return st, nil
}

// Save implements StateStore.
func (r *RedisStore) Save(ctx context.Context, channelID int64, st State) error {
	st.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(channelID), b, r.TTL).Err(); err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	return nil
}

// Reset implements StateStore.
func (r *RedisStore) Reset(ctx context.Context, channelID int64) error {
	if err := r.client.Del(ctx, r.key(channelID)).Err(); err != nil {
		return fmt.Errorf("reset conversation state: %w", err)
	}
	return nil
}
