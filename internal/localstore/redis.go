package localstore

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

const keyNamespace = "desk:local"

type cmdable interface {
    Get(context.Context, string) *redis.StringCmd
    Set(context.Context, string, any, time.Duration) *redis.StatusCmd
    Del(context.Context, ...string) *redis.IntCmd
}

// Redis keeps local state in a Redis instance on the same host, for kiosks
// where several console processes share one queue.
type Redis struct {
    store cmdable
    raw   *redis.Client
}

// NewRedis connects and verifies the server is reachable.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
    if url == "" { return nil, errors.New("localstore: redis url is required") }
    opts, err := redis.ParseURL(url)
    if err != nil { return nil, fmt.Errorf("parsing redis url: %w", err) }
    raw := redis.NewClient(opts)
    if err := raw.Ping(ctx).Err(); err != nil {
        return nil, fmt.Errorf("ping redis: %w", err)
    }
    return &Redis{store: raw, raw: raw}, nil
}

func (r *Redis) key(k string) string { return keyNamespace + ":" + k }

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
    v, err := r.store.Get(ctx, r.key(key)).Result()
    if errors.Is(err, redis.Nil) { return "", false, nil }
    if err != nil { return "", false, err }
    return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
    return r.store.Set(ctx, r.key(key), value, 0).Err()
}

func (r *Redis) Remove(ctx context.Context, key string) error {
    return r.store.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Close() error {
    if r.raw == nil { return nil }
    return r.raw.Close()
}
