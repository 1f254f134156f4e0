// Package route orders a courier's stops and rewrites manual sequence numbers.
package route

import (
    "sort"
    "time"

    "deliverydesk/internal/model"
)

// UnsetSequence is where orders without a manual sequence land within their tier.
const UnsetSequence = 999

type Direction string

const (
    Up   Direction = "up"
    Down Direction = "down"
)

func (d Direction) Valid() bool { return d == Up || d == Down }

// SequenceUpdate is one half of a move.
type SequenceUpdate struct {
    ID       string `json:"id"`
    Sequence int64  `json:"sequence"`
}

func effectiveSequence(o model.Order) int64 {
    if o.SequenceNumber <= 0 { return UnsetSequence }
    return int64(o.SequenceNumber)
}

// Less reports whether a is visited before b: pending before delivered, then
// tier, then manual sequence, then creation time.
func Less(a, b model.Order) bool {
    if a.Delivered != b.Delivered { return !a.Delivered }
    ta, tb := a.PriorityTier.OrDefault(), b.PriorityTier.OrDefault()
    if ta != tb { return ta < tb }
    sa, sb := effectiveSequence(a), effectiveSequence(b)
    if sa != sb { return sa < sb }
    return a.CreatedAt.Before(b.CreatedAt)
}

// Sort returns the orders in route order. The input is left untouched.
func Sort(orders []model.Order) []model.Order {
    out := make([]model.Order, len(orders))
    copy(out, orders)
    sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
    return out
}

// Move swaps the order's sequence number with its neighbour inside the same
// tier. An unset number swaps like any other, so the neighbour falls to the
// end of the tier. When both numbers are equal the tier is renumbered first.
// It returns nil when the order is unknown or already at the edge.
func Move(orders []model.Order, id string, dir Direction) []SequenceUpdate {
    var target model.Order
    found := false
    for _, o := range orders {
        if o.ID == id { target, found = o, true; break }
    }
    if !found || !dir.Valid() { return nil }

    tier := target.PriorityTier.OrDefault()
    peers := make([]model.Order, 0, len(orders))
    for _, o := range orders {
        if o.PriorityTier.OrDefault() == tier { peers = append(peers, o) }
    }
    sort.SliceStable(peers, func(i, j int) bool {
        si, sj := effectiveSequence(peers[i]), effectiveSequence(peers[j])
        if si != sj { return si < sj }
        return peers[i].CreatedAt.Before(peers[j].CreatedAt)
    })

    i := -1
    for k, o := range peers {
        if o.ID == id { i = k; break }
    }
    j := i - 1
    if dir == Down { j = i + 1 }
    if j < 0 || j >= len(peers) { return nil }

    cur, dst := int64(peers[i].SequenceNumber), int64(peers[j].SequenceNumber)
    if cur < 0 { cur = 0 }
    if dst < 0 { dst = 0 }
    if cur != dst {
        return []SequenceUpdate{
            {ID: peers[i].ID, Sequence: dst},
            {ID: peers[j].ID, Sequence: cur},
        }
    }
    return renumberAndSwap(peers, i, j)
}

// renumberAndSwap gives the tier positional numbers 1..n and then swaps i and
// j. Only orders whose number changes are returned, the moved pair first.
func renumberAndSwap(peers []model.Order, i, j int) []SequenceUpdate {
    next := make([]int64, len(peers))
    for k := range peers { next[k] = int64(k + 1) }
    next[i], next[j] = next[j], next[i]

    out := []SequenceUpdate{
        {ID: peers[i].ID, Sequence: next[i]},
        {ID: peers[j].ID, Sequence: next[j]},
    }
    for k, o := range peers {
        if k == i || k == j || int64(o.SequenceNumber) == next[k] { continue }
        out = append(out, SequenceUpdate{ID: o.ID, Sequence: next[k]})
    }
    return out
}

// ClampSequence coerces user input into a sequence number; negative and
// non-numeric input become 0.
func ClampSequence(v any) int {
    return int(model.ParseNonNegative(v))
}

// NextBusinessDay returns the day after from as YYYY-MM-DD, skipping Sunday.
func NextBusinessDay(from time.Time) string {
    next := from.AddDate(0, 0, 1)
    if next.Weekday() == time.Sunday { next = next.AddDate(0, 0, 1) }
    return next.Format("2006-01-02")
}
