// Package offline buffers order mutations while the console has no
// connectivity and replays them once it comes back.
package offline

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"

    "deliverydesk/internal/localstore"
    "deliverydesk/internal/logger"
    "deliverydesk/internal/metrics"
    "deliverydesk/internal/model"
    "deliverydesk/internal/store"
)

// QueueKey is the local storage key holding the serialized queue.
const QueueKey = "offline_queue"

// DefaultMaxAttempts is how many failed replays an action survives.
const DefaultMaxAttempts = 3

var ErrDrainInProgress = errors.New("drain already in progress")

// DrainResult reports one drain pass.
type DrainResult struct {
    Succeeded int
    Retained  int
    Discarded int
    // Refresh is set when at least one action reached the store.
    Refresh bool
}

type Queue struct {
    Storage     localstore.Storage
    Store       store.Store
    Log         *logger.Logger
    MaxAttempts int

    mu       sync.Mutex
    actions  []model.PendingAction
    draining bool
    now      func() time.Time
}

func NewQueue(storage localstore.Storage, s store.Store, log *logger.Logger, maxAttempts int) *Queue {
    if maxAttempts <= 0 { maxAttempts = DefaultMaxAttempts }
    if log == nil { log = logger.Nop() }
    return &Queue{Storage: storage, Store: s, Log: log, MaxAttempts: maxAttempts, now: time.Now}
}

// Load replaces the in-memory queue with the persisted one. A stored queue
// that cannot be decoded is logged and treated as empty.
func (q *Queue) Load(ctx context.Context) error {
    q.mu.Lock()
    defer q.mu.Unlock()
    if q.draining { return ErrDrainInProgress }
    raw, ok, err := q.Storage.Get(ctx, QueueKey)
    if err != nil { return fmt.Errorf("load queue: %w", err) }
    q.actions = nil
    if ok && raw != "" {
        var stored []model.PendingAction
        if err := json.Unmarshal([]byte(raw), &stored); err != nil {
            q.Log.Error(ctx, "stored offline queue is malformed, starting empty", err)
        } else {
            q.actions = stored
        }
    }
    metrics.QueueDepth.Set(float64(len(q.actions)))
    return nil
}

// Enqueue appends a new action and persists the whole queue.
func (q *Queue) Enqueue(ctx context.Context, kind model.ActionKind, payload map[string]any) (model.PendingAction, error) {
    if id, _ := payload["id"].(string); id == "" {
        return model.PendingAction{}, fmt.Errorf("%w: missing order id", ErrInvalidPayload)
    }
    now := q.now()
    a := model.PendingAction{
        ID:        fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()),
        Kind:      kind,
        Payload:   copyPayload(payload),
        CreatedAt: now.UTC(),
    }
    q.mu.Lock()
    defer q.mu.Unlock()
    q.actions = append(q.actions, a)
    metrics.QueueDepth.Set(float64(len(q.actions)))
    if err := q.persistLocked(ctx); err != nil { return a, err }
    return a, nil
}

// Drain replays a snapshot of the queue in order, one action at a time.
// Actions enqueued while the pass runs wait for the next one.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
    var res DrainResult
    q.mu.Lock()
    if q.draining {
        q.mu.Unlock()
        return res, ErrDrainInProgress
    }
    q.draining = true
    pending := make([]model.PendingAction, len(q.actions))
    copy(pending, q.actions)
    q.mu.Unlock()

    start := time.Now()
    survivors := make([]model.PendingAction, 0, len(pending))
    for i, a := range pending {
        if ctx.Err() != nil {
            // cancelled mid-pass: untouched actions keep their attempt count
            survivors = append(survivors, pending[i:]...)
            break
        }
        actx := q.Log.WithFields(ctx, map[string]any{"action_id": a.ID, "kind": a.Kind, "order_id": a.OrderID()})
        err := Replay(ctx, q.Store, a)
        if err == nil {
            res.Succeeded++
            metrics.QueueReplays.WithLabelValues(string(a.Kind), "succeeded").Inc()
            continue
        }
        a.Attempts++
        if errors.Is(err, ErrUnknownKind) {
            q.Log.Error(actx, "unknown action kind", err)
        }
        if a.Attempts > q.MaxAttempts {
            res.Discarded++
            metrics.QueueReplays.WithLabelValues(string(a.Kind), "discarded").Inc()
            q.Log.Warn(q.Log.WithField(actx, "error", err.Error()), "discarding offline action after repeated failures")
            continue
        }
        res.Retained++
        metrics.QueueReplays.WithLabelValues(string(a.Kind), "retained").Inc()
        q.Log.Debug(q.Log.WithField(actx, "attempts", a.Attempts), "offline action replay failed, keeping it")
        survivors = append(survivors, a)
    }
    metrics.DrainDuration.Observe(time.Since(start).Seconds())

    q.mu.Lock()
    defer q.mu.Unlock()
    q.draining = false
    q.actions = append(survivors, q.actions[len(pending):]...)
    metrics.QueueDepth.Set(float64(len(q.actions)))
    res.Refresh = res.Succeeded > 0
    if err := q.persistLocked(ctx); err != nil { return res, err }
    return res, nil
}

func (q *Queue) Len() int {
    q.mu.Lock()
    defer q.mu.Unlock()
    return len(q.actions)
}

// Pending returns a copy of the queued actions in replay order.
func (q *Queue) Pending() []model.PendingAction {
    q.mu.Lock()
    defer q.mu.Unlock()
    out := make([]model.PendingAction, len(q.actions))
    for i, a := range q.actions {
        a.Payload = copyPayload(a.Payload)
        out[i] = a
    }
    return out
}

func (q *Queue) persistLocked(ctx context.Context) error {
    actions := q.actions
    if actions == nil { actions = []model.PendingAction{} }
    b, err := json.Marshal(actions)
    if err != nil { return fmt.Errorf("encode queue: %w", err) }
    if err := q.Storage.Set(context.WithoutCancel(ctx), QueueKey, string(b)); err != nil {
        return fmt.Errorf("persist queue: %w", err)
    }
    return nil
}

func copyPayload(p map[string]any) map[string]any {
    out := make(map[string]any, len(p))
    for k, v := range p { out[k] = v }
    return out
}
