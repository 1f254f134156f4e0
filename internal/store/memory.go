package store

import (
    "context"
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"
    "deliverydesk/internal/model"
)

// Memory is a simple in-memory store used when no database URL is set.
type Memory struct {
    mu      sync.Mutex
    records map[string]map[string]model.Record // collection -> id -> record
    order   map[string][]string                // collection -> ids in insertion order
    broker  ChangeBroker
}

func NewMemory() *Memory {
    return NewMemoryWithBroker(NewBroker())
}

// NewMemoryWithBroker publishes changes through b (for example a RedisBroker).
// A nil b gets an in-process broker.
func NewMemoryWithBroker(b ChangeBroker) *Memory {
    if b == nil { b = NewBroker() }
    return &Memory{
        records: map[string]map[string]model.Record{},
        order:   map[string][]string{},
        broker:  b,
    }
}

func (m *Memory) Query(ctx context.Context, collection string, q Query) ([]model.Record, error) {
    m.mu.Lock()
    out := []model.Record{}
    for _, id := range m.order[collection] {
        rec := m.records[collection][id]
        if matches(rec, q.Filter) { out = append(out, clone(rec)) }
    }
    m.mu.Unlock()
    if q.OrderBy != "" {
        sort.SliceStable(out, func(i, j int) bool {
            c := compareValues(out[i][q.OrderBy], out[j][q.OrderBy])
            if q.Descending { return c > 0 }
            return c < 0
        })
    }
    if q.Limit > 0 && len(out) > q.Limit { out = out[:q.Limit] }
    return out, nil
}

func (m *Memory) Insert(ctx context.Context, collection string, rec model.Record) (model.Record, error) {
    rec = clone(rec)
    id, _ := rec["id"].(string)
    if id == "" {
        id = uuid.New().String()
        rec["id"] = id
    }
    if _, ok := rec["createdAt"]; !ok {
        rec["createdAt"] = time.Now().UTC().Format(time.RFC3339Nano)
    }
    m.mu.Lock()
    if m.records[collection] == nil { m.records[collection] = map[string]model.Record{} }
    if _, exists := m.records[collection][id]; exists {
        m.mu.Unlock()
        return nil, fmt.Errorf("%w: duplicate id %s", ErrRejected, id)
    }
    m.records[collection][id] = rec
    m.order[collection] = append(m.order[collection], id)
    m.mu.Unlock()
    m.publish(model.Change{Collection: collection, Type: model.ChangeCreated, After: clone(rec)})
    return clone(rec), nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch model.Record) error {
    if id == "" { return fmt.Errorf("%w: missing id", ErrRejected) }
    m.mu.Lock()
    cur, ok := m.records[collection][id]
    if !ok {
        m.mu.Unlock()
        return ErrNotFound
    }
    before := clone(cur)
    for k, v := range patch {
        if k == "id" { continue }
        cur[k] = v
    }
    after := clone(cur)
    m.mu.Unlock()
    m.publish(model.Change{Collection: collection, Type: model.ChangeUpdated, Before: before, After: after})
    return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
    m.mu.Lock()
    cur, ok := m.records[collection][id]
    if !ok {
        m.mu.Unlock()
        return ErrNotFound
    }
    delete(m.records[collection], id)
    ids := m.order[collection]
    for i, v := range ids {
        if v == id {
            m.order[collection] = append(ids[:i:i], ids[i+1:]...)
            break
        }
    }
    m.mu.Unlock()
    m.publish(model.Change{Collection: collection, Type: model.ChangeDeleted, Before: cur})
    return nil
}

func (m *Memory) Subscribe(collection string) (<-chan model.Change, func()) {
    return subscribe(m.broker, collection)
}

func (m *Memory) publish(evt model.Change) { m.broker.Publish(evt) }

func clone(rec model.Record) model.Record {
    if rec == nil { return nil }
    out := make(model.Record, len(rec))
    for k, v := range rec { out[k] = v }
    return out
}

func matches(rec model.Record, filter map[string]any) bool {
    for k, want := range filter {
        if compareValues(rec[k], want) != 0 { return false }
    }
    return true
}

// compareValues orders numbers numerically and everything else by its string form.
// Missing values sort first.
func compareValues(a, b any) int {
    if a == nil || b == nil {
        switch {
        case a == nil && b == nil:
            return 0
        case a == nil:
            return -1
        default:
            return 1
        }
    }
    fa, aNum := toFloat(a)
    fb, bNum := toFloat(b)
    if aNum && bNum {
        switch {
        case fa < fb:
            return -1
        case fa > fb:
            return 1
        }
        return 0
    }
    sa, sb := fmt.Sprint(a), fmt.Sprint(b)
    switch {
    case sa < sb:
        return -1
    case sa > sb:
        return 1
    }
    return 0
}

func toFloat(v any) (float64, bool) {
    switch t := v.(type) {
    case float64:
        return t, true
    case float32:
        return float64(t), true
    case int:
        return float64(t), true
    case int64:
        return float64(t), true
    case model.FlexInt:
        return float64(t), true
    }
    return 0, false
}
