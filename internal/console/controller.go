// Package console is the order desk's single point of control: every
// operator action and environment signal goes through Controller.Dispatch.
package console

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"
    "golang.org/x/time/rate"

    "deliverydesk/internal/localstore"
    "deliverydesk/internal/logger"
    "deliverydesk/internal/model"
    "deliverydesk/internal/offline"
    "deliverydesk/internal/reconcile"
    "deliverydesk/internal/route"
    "deliverydesk/internal/store"
)

var (
    ErrOffline        = errors.New("not available while offline")
    ErrDeliveredOrder = errors.New("delivered orders cannot be deleted")
    ErrRateLimited    = errors.New("too many orders created, try again shortly")
    ErrInvalidOrder   = errors.New("invalid order")
    ErrUnknownEvent   = errors.New("unknown event")
)

// DefaultCreatePerMinute bounds order creation.
const DefaultCreatePerMinute = 10

// HistoryLimit is how many past orders a customer lookup returns.
const HistoryLimit = 5

const minPhoneLength = 7

type Options struct {
    Store           store.Store
    Local           localstore.Storage
    Log             *logger.Logger
    MaxAttempts     int
    CreatePerMinute int
    // Online is the connectivity flag at startup.
    Online bool
}

type Controller struct {
    store   store.Store
    local   localstore.Storage
    queue   *offline.Queue
    log     *logger.Logger
    advisor *reconcile.Advisor
    limiter *rate.Limiter
    now     func() time.Time

    // actor serializes Dispatch; mu guards the fields below for readers.
    actor           sync.Mutex
    mu              sync.RWMutex
    orders          []model.Order
    online          bool
    editing         bool
    refreshDeferred bool
    fromSnapshot    bool
}

func New(opts Options) *Controller {
    log := opts.Log
    if log == nil { log = logger.Nop() }
    perMin := opts.CreatePerMinute
    if perMin <= 0 { perMin = DefaultCreatePerMinute }
    return &Controller{
        store:   opts.Store,
        local:   opts.Local,
        queue:   offline.NewQueue(opts.Local, opts.Store, log, opts.MaxAttempts),
        log:     log,
        advisor: reconcile.NewAdvisor(log),
        limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
        now:     time.Now,
        online:  opts.Online,
    }
}

// Start restores the persisted queue and fills the order cache. When online,
// anything left in the queue is replayed first.
func (c *Controller) Start(ctx context.Context) error {
    c.actor.Lock()
    defer c.actor.Unlock()
    if err := c.queue.Load(ctx); err != nil { return err }
    if !c.Online() {
        return c.useSnapshot(ctx, nil)
    }
    if c.queue.Len() > 0 {
        if _, err := c.queue.Drain(ctx); err != nil && !errors.Is(err, offline.ErrDrainInProgress) {
            c.log.Error(ctx, "startup drain failed", err)
        }
    }
    return c.refresh(ctx)
}

// Watch forwards store change notifications into Dispatch until ctx ends.
func (c *Controller) Watch(ctx context.Context) {
    ch, cancel := c.store.Subscribe(model.CollectionOrders)
    defer cancel()
    for {
        select {
        case <-ctx.Done():
            return
        case evt, ok := <-ch:
            if !ok { return }
            if err := c.Dispatch(ctx, StoreChanged{Change: evt}); err != nil {
                c.log.Error(ctx, "refresh after store change failed", err)
            }
        }
    }
}

// Dispatch applies one event. Mutations go straight to the store when online
// and into the offline queue otherwise, patching the local cache either way.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
    c.actor.Lock()
    defer c.actor.Unlock()

    switch e := ev.(type) {
    case ConnectivityChanged:
        return c.setOnline(ctx, e.Online)
    case StoreChanged:
        if e.Change.Collection != "" && e.Change.Collection != model.CollectionOrders { return nil }
        return c.refreshUnlessEditing(ctx)
    case EditingChanged:
        return c.setEditing(ctx, e.Editing)
    case Refresh:
        return c.refresh(ctx)
    case MarkDelivered:
        return c.mutate(ctx, model.ActionMarkDelivered, map[string]any{"id": e.ID})
    case UnmarkDelivered:
        return c.mutate(ctx, model.ActionUnmarkDelivered, map[string]any{"id": e.ID})
    case VoidOrder:
        return c.mutate(ctx, model.ActionVoid, map[string]any{"id": e.ID})
    case ReactivateOrder:
        return c.mutate(ctx, model.ActionReactivate, map[string]any{"id": e.ID})
    case DeleteOrder:
        if o, ok := c.Order(e.ID); ok && o.Delivered {
            return fmt.Errorf("%w: %s", ErrDeliveredOrder, e.ID)
        }
        return c.mutate(ctx, model.ActionDelete, map[string]any{"id": e.ID})
    case RescheduleOrder:
        date := strings.TrimSpace(e.Date)
        if date == "" { date = route.NextBusinessDay(c.now()) }
        if _, err := time.Parse("2006-01-02", date); err != nil {
            return fmt.Errorf("%w: date %q", ErrInvalidOrder, e.Date)
        }
        return c.mutate(ctx, model.ActionReschedule, map[string]any{"id": e.ID, "date": date})
    case SetPriority:
        if !e.Tier.Valid() { return fmt.Errorf("%w: priority %q", ErrInvalidOrder, e.Tier) }
        return c.mutate(ctx, model.ActionSetPriority, map[string]any{"id": e.ID, "priority": string(e.Tier)})
    case SetSequence:
        return c.mutate(ctx, model.ActionSetSequence, map[string]any{"id": e.ID, "sequence": route.ClampSequence(e.Value)})
    case MoveOrder:
        return c.move(ctx, e.ID, e.Direction)
    case SettleMixedPayment:
        return c.settleMixed(ctx, e.ID)
    case ConfirmTransfer:
        return c.confirmTransfer(ctx, e.ID)
    case CreateOrder:
        return c.create(ctx, e.Order)
    case AssignCourier:
        return c.mutate(ctx, model.ActionAssignCourier, map[string]any{"id": e.ID, "courier": strings.TrimSpace(e.Courier)})
    case EditOrder:
        return c.edit(ctx, e.ID, e.Edit)
    }
    return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
}

func (c *Controller) setOnline(ctx context.Context, online bool) error {
    c.mu.Lock()
    was := c.online
    c.online = online
    c.mu.Unlock()
    if was || !online { return nil }

    c.log.Info(ctx, "connectivity restored, replaying offline actions")
    res, err := c.queue.Drain(ctx)
    if errors.Is(err, offline.ErrDrainInProgress) { return nil }
    if res.Discarded > 0 {
        c.log.Warn(c.log.WithField(ctx, "discarded", res.Discarded), "offline actions dropped after repeated failures")
    }
    if res.Refresh {
        if rerr := c.refresh(ctx); rerr != nil && err == nil { err = rerr }
    }
    return err
}

func (c *Controller) setEditing(ctx context.Context, editing bool) error {
    c.mu.Lock()
    c.editing = editing
    run := !editing && c.refreshDeferred
    if run { c.refreshDeferred = false }
    c.mu.Unlock()
    if run { return c.refresh(ctx) }
    return nil
}

func (c *Controller) refreshUnlessEditing(ctx context.Context) error {
    c.mu.Lock()
    if c.editing {
        c.refreshDeferred = true
        c.mu.Unlock()
        return nil
    }
    c.mu.Unlock()
    return c.refresh(ctx)
}

// refresh re-reads the orders and caches a snapshot. When the store cannot
// be reached the last snapshot is shown instead.
func (c *Controller) refresh(ctx context.Context) error {
    recs, err := c.store.Query(ctx, model.CollectionOrders, store.Query{OrderBy: "createdAt", Descending: true})
    if err != nil {
        return c.useSnapshot(ctx, err)
    }
    orders, skipped := model.DecodeOrders(recs)
    if skipped > 0 {
        c.log.Error(c.log.WithField(ctx, "skipped", skipped), "some orders could not be decoded", nil)
    }
    c.mu.Lock()
    c.orders = orders
    c.fromSnapshot = false
    c.mu.Unlock()
    if err := offline.SaveSnapshot(ctx, c.local, orders, c.now()); err != nil {
        c.log.Error(ctx, "saving order snapshot failed", err)
    }
    return nil
}

func (c *Controller) useSnapshot(ctx context.Context, cause error) error {
    snap, ok, err := offline.LoadSnapshot(ctx, c.local)
    if err != nil {
        c.log.Error(ctx, "order snapshot unreadable", err)
    }
    if !ok {
        return cause
    }
    if cause != nil {
        c.log.Warn(c.log.WithField(ctx, "error", cause.Error()), "order query failed, showing cached snapshot")
    }
    c.mu.Lock()
    c.orders = snap.Orders
    c.fromSnapshot = true
    c.mu.Unlock()
    return nil
}

// mutate sends one action to the store, or queues it while offline, and
// mirrors the change into the cache.
func (c *Controller) mutate(ctx context.Context, kind model.ActionKind, payload map[string]any) error {
    id, _ := payload["id"].(string)
    if id == "" { return fmt.Errorf("%w: missing id", ErrInvalidOrder) }
    if c.Online() {
        if err := offline.Replay(ctx, c.store, model.PendingAction{Kind: kind, Payload: payload}); err != nil {
            return fmt.Errorf("%s %s: %w", kind, id, err)
        }
    } else if _, err := c.queue.Enqueue(ctx, kind, payload); err != nil {
        return err
    }
    c.patchCache(ctx, kind, payload)
    return nil
}

func (c *Controller) patchCache(ctx context.Context, kind model.ActionKind, payload map[string]any) {
    id, _ := payload["id"].(string)
    c.mu.Lock()
    defer c.mu.Unlock()
    for i, o := range c.orders {
        if o.ID != id { continue }
        if kind == model.ActionDelete {
            c.orders = append(c.orders[:i:i], c.orders[i+1:]...)
            return
        }
        patch, err := offline.RemotePatch(kind, payload)
        if err != nil { return }
        patched, err := model.ApplyPatch(o, patch)
        if err != nil {
            c.log.Error(ctx, "patching cached order failed", err)
            return
        }
        c.orders[i] = patched
        return
    }
}

// move fires both halves of a swap in order. A failed second half is
// returned and the first is left in place.
func (c *Controller) move(ctx context.Context, id string, dir route.Direction) error {
    if !dir.Valid() { return fmt.Errorf("%w: direction %q", ErrInvalidOrder, dir) }
    c.mu.RLock()
    updates := route.Move(c.orders, id, dir)
    c.mu.RUnlock()
    for _, u := range updates {
        if err := c.mutate(ctx, model.ActionSetSequence, map[string]any{"id": u.ID, "sequence": u.Sequence}); err != nil {
            return err
        }
    }
    return nil
}

var settleReplacer = strings.NewReplacer(
    "🔄 Transferencia:", "✅ Transferencia PAGADA:",
    "Transferencia:", "Transferencia PAGADA:",
    "Transfer:", "Transfer CONFIRMED:",
)

func (c *Controller) settleMixed(ctx context.Context, id string) error {
    o, ok := c.Order(id)
    if !ok { return fmt.Errorf("%s: %w", id, store.ErrNotFound) }
    notes := settleReplacer.Replace(o.Notes)
    method := o.PaymentMethod
    if method == model.PaymentMixedPending { method = model.PaymentMixedConfirmed }
    if notes == o.Notes && method == o.PaymentMethod {
        return fmt.Errorf("%w: %s has no pending mixed payment", ErrInvalidOrder, id)
    }
    return c.mutate(ctx, model.ActionSettleMixedPayment, map[string]any{"id": id, "paymentMethod": string(method), "notes": notes})
}

func (c *Controller) confirmTransfer(ctx context.Context, id string) error {
    o, ok := c.Order(id)
    if !ok { return fmt.Errorf("%s: %w", id, store.ErrNotFound) }
    if o.PaymentMethod != model.PaymentTransferPending {
        return fmt.Errorf("%w: %s is not awaiting a transfer", ErrInvalidOrder, id)
    }
    return c.mutate(ctx, model.ActionSettleMixedPayment, map[string]any{"id": id, "paymentMethod": string(model.PaymentTransferConfirmed), "notes": o.Notes})
}

func (c *Controller) create(ctx context.Context, o model.Order) error {
    if !c.Online() { return ErrOffline }
    o.CustomerName = strings.TrimSpace(o.CustomerName)
    o.Address = strings.TrimSpace(o.Address)
    switch {
    case o.CustomerName == "":
        return fmt.Errorf("%w: customer name is required", ErrInvalidOrder)
    case o.Address == "":
        return fmt.Errorf("%w: address is required", ErrInvalidOrder)
    case o.ResolvedTotal() <= 0:
        return fmt.Errorf("%w: total must be positive", ErrInvalidOrder)
    }
    if !c.limiter.Allow() { return ErrRateLimited }

    if o.ID == "" { o.ID = uuid.NewString() }
    o.PriorityTier = o.PriorityTier.OrDefault()
    if o.PaymentMethod == "" { o.PaymentMethod = model.PaymentCash }
    if o.CreatedAt.IsZero() { o.CreatedAt = c.now().UTC() }
    o.Delivered = false
    o.Status = ""

    rec, err := o.Record()
    if err != nil { return fmt.Errorf("%w: %v", ErrInvalidOrder, err) }
    saved, err := c.store.Insert(ctx, model.CollectionOrders, rec)
    if err != nil { return fmt.Errorf("create order: %w", err) }
    created, err := model.DecodeOrder(saved)
    if err != nil { created = o }
    c.mu.Lock()
    c.orders = append([]model.Order{created}, c.orders...)
    c.mu.Unlock()
    return nil
}

func (c *Controller) edit(ctx context.Context, id string, e OrderEdit) error {
    e.Address = strings.TrimSpace(e.Address)
    e.Phone = strings.TrimSpace(e.Phone)
    e.Date = strings.TrimSpace(e.Date)
    switch {
    case e.Address == "":
        return fmt.Errorf("%w: address is required", ErrInvalidOrder)
    case e.Phone == "":
        return fmt.Errorf("%w: phone is required", ErrInvalidOrder)
    case len(e.Items) == 0:
        return fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
    }
    if e.Date != "" {
        if _, err := time.Parse("2006-01-02", e.Date); err != nil {
            return fmt.Errorf("%w: date %q", ErrInvalidOrder, e.Date)
        }
    }
    var total int64
    for _, it := range e.Items { total += int64(it.Quantity) * int64(it.Price) }
    method := e.PaymentMethod
    if method == "" { method = model.PaymentCash }

    return c.mutate(ctx, model.ActionEditOrder, map[string]any{
        "id":            id,
        "customerName":  strings.TrimSpace(e.CustomerName),
        "address":       e.Address,
        "phone":         e.Phone,
        "paymentMethod": string(model.NormalizePaymentMethod(string(method))),
        "date":          e.Date,
        "items":         e.Items,
        "notes":         strings.TrimSpace(e.Notes),
        "total":         total,
        "updatedAt":     c.now().UTC().Format(time.RFC3339),
    })
}

// Orders returns the cached orders in route order.
func (c *Controller) Orders() []model.Order {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return route.Sort(c.orders)
}

func (c *Controller) Order(id string) (model.Order, bool) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    for _, o := range c.orders {
        if o.ID == id { return o, true }
    }
    return model.Order{}, false
}

// Summary reconciles the cached orders, surfacing new advisories once per session.
func (c *Controller) Summary(ctx context.Context) model.ReconciliationSummary {
    c.mu.RLock()
    orders := make([]model.Order, len(c.orders))
    copy(orders, c.orders)
    c.mu.RUnlock()
    return reconcile.ComputeSummaryWithAdvisor(ctx, orders, c.advisor)
}

// LoadSummary is the truck load for the cached pending orders, limited to
// date when it is set.
func (c *Controller) LoadSummary(date string) model.LoadSummary {
    date = strings.TrimSpace(date)
    c.mu.RLock()
    orders := make([]model.Order, 0, len(c.orders))
    for _, o := range c.orders {
        if date == "" || o.Date == date { orders = append(orders, o) }
    }
    c.mu.RUnlock()
    return route.LoadSummary(orders)
}

// CustomerHistory returns the customer's latest orders by phone, newest first.
// Offline, or when the store query fails, the cache answers instead.
func (c *Controller) CustomerHistory(ctx context.Context, phone string) ([]model.Order, error) {
    phone = strings.TrimSpace(phone)
    if len(phone) < minPhoneLength {
        return nil, fmt.Errorf("%w: phone %q is too short", ErrInvalidOrder, phone)
    }
    if c.Online() {
        recs, err := c.store.Query(ctx, model.CollectionOrders, store.Query{
            Filter:     map[string]any{"phone": phone},
            OrderBy:    "createdAt",
            Descending: true,
            Limit:      HistoryLimit,
        })
        if err == nil {
            orders, _ := model.DecodeOrders(recs)
            return orders, nil
        }
        c.log.Warn(c.log.WithField(ctx, "error", err.Error()), "customer history query failed, using cached orders")
    }

    out := []model.Order{}
    c.mu.RLock()
    for _, o := range c.orders {
        if o.Phone == phone { out = append(out, o) }
    }
    c.mu.RUnlock()
    sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
    if len(out) > HistoryLimit { out = out[:HistoryLimit] }
    return out, nil
}

// Advisories lists the reconciliation warnings shown this session.
func (c *Controller) Advisories() []model.Advisory { return c.advisor.Surfaced() }

func (c *Controller) PendingActions() []model.PendingAction { return c.queue.Pending() }

func (c *Controller) Online() bool {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return c.online
}

func (c *Controller) Editing() bool {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return c.editing
}

// FromSnapshot reports whether the cache came from the offline snapshot.
func (c *Controller) FromSnapshot() bool {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return c.fromSnapshot
}
