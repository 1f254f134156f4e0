package reconcile

import (
    "context"
    "sync"

    "deliverydesk/internal/logger"
    "deliverydesk/internal/metrics"
    "deliverydesk/internal/model"
)

// Advisor surfaces a reconciliation warning to the operator at most once per
// category for its lifetime. One Advisor lives for one console session.
type Advisor struct {
    log   *logger.Logger
    mu    sync.Mutex
    fired map[model.PaymentMethod]model.Advisory
}

func NewAdvisor(log *logger.Logger) *Advisor {
    if log == nil { log = logger.Nop() }
    return &Advisor{log: log, fired: map[model.PaymentMethod]model.Advisory{}}
}

// Advise reports whether adv was surfaced, false when its category already was.
func (a *Advisor) Advise(ctx context.Context, adv model.Advisory) bool {
    a.mu.Lock()
    if _, seen := a.fired[adv.Category]; seen {
        a.mu.Unlock()
        return false
    }
    a.fired[adv.Category] = adv
    a.mu.Unlock()

    metrics.ReconcileAdvisories.WithLabelValues(string(adv.Category)).Inc()
    a.log.Warn(a.log.WithFields(ctx, map[string]any{"category": adv.Category, "order_id": adv.OrderID}), adv.Message)
    return true
}

// Surfaced returns the advisories shown so far.
func (a *Advisor) Surfaced() []model.Advisory {
    a.mu.Lock()
    defer a.mu.Unlock()
    out := make([]model.Advisory, 0, len(a.fired))
    for _, c := range []model.PaymentMethod{model.PaymentMixedPending, model.PaymentMixedConfirmed} {
        if adv, ok := a.fired[c]; ok { out = append(out, adv) }
    }
    return out
}
