package store

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"

    "deliverydesk/internal/model"
)

// RedisBroker implements ChangeBroker over Redis Pub/Sub so that several
// console processes see each other's writes.
type RedisBroker struct {
    rdb *redis.Client
    mu  sync.Mutex
    ps  map[chan model.Change]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil { return nil, err }
    return &RedisBroker{rdb: redis.NewClient(opt), ps: map[chan model.Change]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(collection string) chan model.Change {
    ch := make(chan model.Change, 16)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(collection))
    // initial consume to ensure subscription
    _, _ = ps.Receive(ctx)
    b.mu.Lock()
    b.ps[ch] = ps
    b.mu.Unlock()
    go func() {
        for msg := range ps.Channel() {
            var evt model.Change
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil { continue }
            b.mu.Lock()
            _, live := b.ps[ch]
            if live {
                select { case ch <- evt: default: }
            }
            b.mu.Unlock()
            if !live { return }
        }
    }()
    return ch
}

func (b *RedisBroker) Unsubscribe(collection string, ch chan model.Change) {
    b.mu.Lock()
    ps, ok := b.ps[ch]
    delete(b.ps, ch)
    b.mu.Unlock()
    if !ok { return }
    _ = ps.Close()
    close(ch)
}

func (b *RedisBroker) Publish(evt model.Change) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, _ := json.Marshal(evt)
    _ = b.rdb.Publish(ctx, b.chanName(evt.Collection), data).Err()
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) chanName(collection string) string { return "changes:" + collection }
