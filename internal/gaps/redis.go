package gaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTTL     = 24 * time.Hour
	defaultRedisLockTTL = 2 * time.Hour
)

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps gap sets in redis under gaps:<session>. The session lock is
// a SETNX key gaps:lock:<session> holding a random token.
type RedisStore struct {
	client  redis.UniversalClient
	ttl     time.Duration
	lockTTL time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	LockTTL  time.Duration
}

// NewRedisStore connects to redis and fails when the server does not answer a ping.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return newRedisStore(client, opts.TTL, opts.LockTTL), nil
}

func newRedisStore(client redis.UniversalClient, ttl, lockTTL time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if lockTTL <= 0 {
		lockTTL = defaultRedisLockTTL
	}
	return &RedisStore{client: client, ttl: ttl, lockTTL: lockTTL}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (Set, error) {
	data, err := r.client.Get(ctx, setKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Set{}, ErrNotFound
		}
		return Set{}, fmt.Errorf("get gaps: %w", err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return Set{}, fmt.Errorf("decode gaps: %w", err)
	}
	return set, nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, set Set) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode gaps: %w", err)
	}
	if err := r.client.Set(ctx, setKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set gaps: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, setKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete gaps: %w", err)
	}
	return nil
}

func (r *RedisStore) Lock(ctx context.Context, sessionID string) (Unlock, error) {
	key := lockKey(sessionID)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrSessionLocked
	}

	return func(ctx context.Context) error {
		if err := releaseLock.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release session lock: %w", err)
		}
		return nil
	}, nil
}

func setKey(sessionID string) string {
	return "gaps:" + sessionID
}

func lockKey(sessionID string) string {
	return "gaps:lock:" + sessionID
}
