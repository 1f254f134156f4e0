package offline

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "deliverydesk/internal/localstore"
    "deliverydesk/internal/model"
)

// SnapshotKey holds the last successfully fetched orders.
const SnapshotKey = "orders_snapshot"

func SaveSnapshot(ctx context.Context, s localstore.Storage, orders []model.Order, at time.Time) error {
    if orders == nil { orders = []model.Order{} }
    b, err := json.Marshal(model.OrderSnapshot{Orders: orders, Timestamp: at.UnixMilli()})
    if err != nil { return fmt.Errorf("encode snapshot: %w", err) }
    return s.Set(ctx, SnapshotKey, string(b))
}

// LoadSnapshot returns the cached orders; ok is false when nothing usable is stored.
func LoadSnapshot(ctx context.Context, s localstore.Storage) (snap model.OrderSnapshot, ok bool, err error) {
    raw, found, err := s.Get(ctx, SnapshotKey)
    if err != nil || !found { return snap, false, err }
    if err := json.Unmarshal([]byte(raw), &snap); err != nil {
        return model.OrderSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
    }
    return snap, true, nil
}
