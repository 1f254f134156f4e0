package model

import (
    "encoding/json"
    "strconv"
    "strings"
    "time"
)

// Record is a raw row exchanged with the remote store.
type Record = map[string]any

// Collection names used against the remote store.
const (
    CollectionOrders = "orders"
)

// StatusVoided marks an order as cancelled. Voided orders never count toward cash totals.
const StatusVoided = "VOIDED"

// PriorityTier is the coarse route bucket; A is served first.
type PriorityTier string

const (
    TierA PriorityTier = "A"
    TierB PriorityTier = "B"
    TierC PriorityTier = "C"
)

// Valid reports whether t is one of A, B or C.
func (t PriorityTier) Valid() bool {
    return t == TierA || t == TierB || t == TierC
}

// OrDefault returns t, or C when t is missing or unknown.
func (t PriorityTier) OrDefault() PriorityTier {
    if t.Valid() { return t }
    return TierC
}

// PaymentMethod is how the customer paid (or will pay) for an order.
type PaymentMethod string

const (
    PaymentCash                  PaymentMethod = "cash"
    PaymentCard                  PaymentMethod = "card"
    PaymentTransferPending       PaymentMethod = "bank-transfer-pending"
    PaymentTransferConfirmed     PaymentMethod = "bank-transfer-confirmed"
    PaymentAlreadySettled        PaymentMethod = "already-settled"
    PaymentMixedPending          PaymentMethod = "mixed-pending"
    PaymentMixedConfirmed        PaymentMethod = "mixed-confirmed"
)

// legacy single/two-letter codes still present in stored orders
var legacyPaymentCodes = map[string]PaymentMethod{
    "E":   PaymentCash,
    "DC":  PaymentCard,
    "D":   PaymentCard,
    "C":   PaymentCard,
    "T":   PaymentTransferPending,
    "TP":  PaymentTransferPending,
    "TG":  PaymentTransferConfirmed,
    "P":   PaymentAlreadySettled,
    "PM":  PaymentMixedPending,
    "PMP": PaymentMixedConfirmed,
}

// NormalizePaymentMethod maps legacy codes onto the canonical names.
// Unknown values are returned trimmed and unchanged.
func NormalizePaymentMethod(s string) PaymentMethod {
    s = strings.TrimSpace(s)
    if pm, ok := legacyPaymentCodes[strings.ToUpper(s)]; ok {
        return pm
    }
    return PaymentMethod(strings.ToLower(s))
}

func (p *PaymentMethod) UnmarshalJSON(b []byte) error {
    var s string
    if err := json.Unmarshal(b, &s); err != nil {
        // null or a non-string value: treat as missing
        *p = ""
        return nil
    }
    *p = NormalizePaymentMethod(s)
    return nil
}

// FlexInt decodes numbers and numeric strings leniently. Anything else,
// including negative values, decodes to zero.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
    *f = 0
    var v any
    if err := json.Unmarshal(b, &v); err != nil {
        return nil
    }
    *f = FlexInt(ParseNonNegative(v))
    return nil
}

// ParseNonNegative converts a loosely typed value into a non-negative integer.
// Strings are parsed like a leading-integer parse ("120abc" -> 120).
func ParseNonNegative(v any) int64 {
    var n int64
    switch t := v.(type) {
    case float64:
        n = int64(t)
    case float32:
        n = int64(t)
    case int:
        n = int64(t)
    case int64:
        n = t
    case int32:
        n = int64(t)
    case FlexInt:
        n = int64(t)
    case json.Number:
        if i, err := t.Int64(); err == nil {
            n = i
        } else if f, err := t.Float64(); err == nil {
            n = int64(f)
        }
    case string:
        n = leadingInt(strings.TrimSpace(t))
    }
    if n < 0 { return 0 }
    return n
}

func leadingInt(s string) int64 {
    end := 0
    if end < len(s) && (s[end] == '-' || s[end] == '+') { end++ }
    for end < len(s) && s[end] >= '0' && s[end] <= '9' { end++ }
    n, err := strconv.ParseInt(s[:end], 10, 64)
    if err != nil { return 0 }
    return n
}

// OrderItem is a product line on an order.
type OrderItem struct {
    Name     string  `json:"name"`
    Quantity FlexInt `json:"quantity"`
    Price    FlexInt `json:"price"`
}

// Order is the locally cached copy of a remote order record.
type Order struct {
    ID             string        `json:"id"`
    CustomerName   string        `json:"customerName,omitempty"`
    Address        string        `json:"address,omitempty"`
    Phone          string        `json:"phone,omitempty"`
    Date           string        `json:"date,omitempty"`
    PaymentMethod  PaymentMethod `json:"paymentMethod,omitempty"`
    Notes          string        `json:"notes,omitempty"`
    Total          FlexInt       `json:"total"`
    Price          FlexInt       `json:"price,omitempty"`
    Delivered      bool          `json:"delivered"`
    Status         string        `json:"status,omitempty"`
    PriorityTier   PriorityTier  `json:"priorityTier,omitempty"`
    SequenceNumber FlexInt       `json:"sequenceNumber"`
    AssignedTo     string        `json:"assignedTo,omitempty"`
    CreatedAt      time.Time     `json:"createdAt"`
    Items          []OrderItem   `json:"items,omitempty"`
}

// Voided reports whether the order was cancelled.
func (o Order) Voided() bool { return strings.EqualFold(o.Status, StatusVoided) }

// ResolvedTotal is the first positive amount among the known total aliases.
func (o Order) ResolvedTotal() int64 {
    if o.Total > 0 { return int64(o.Total) }
    if o.Price > 0 { return int64(o.Price) }
    return 0
}

// Record encodes the order as a raw store row.
func (o Order) Record() (Record, error) {
    b, err := json.Marshal(o)
    if err != nil { return nil, err }
    var rec Record
    if err := json.Unmarshal(b, &rec); err != nil { return nil, err }
    return rec, nil
}

// DecodeOrder converts a raw store row into an Order.
// A createdAt that is not RFC 3339 is dropped rather than failing the row.
func DecodeOrder(rec Record) (Order, error) {
    var o Order
    if ts, ok := rec["createdAt"]; ok {
        if s, isStr := ts.(string); !isStr || !validTime(s) {
            trimmed := make(Record, len(rec))
            for k, v := range rec { trimmed[k] = v }
            delete(trimmed, "createdAt")
            rec = trimmed
        }
    }
    b, err := json.Marshal(rec)
    if err != nil { return o, err }
    err = json.Unmarshal(b, &o)
    return o, err
}

func validTime(s string) bool {
    _, err := time.Parse(time.RFC3339Nano, s)
    return err == nil
}

// DecodeOrders converts raw store rows, skipping rows that cannot be decoded.
// The second return value counts skipped rows.
func DecodeOrders(recs []Record) ([]Order, int) {
    out := make([]Order, 0, len(recs))
    skipped := 0
    for _, r := range recs {
        o, err := DecodeOrder(r)
        if err != nil || o.ID == "" {
            skipped++
            continue
        }
        out = append(out, o)
    }
    return out, skipped
}

// ApplyPatch overlays a field patch (store field names) onto an order.
func ApplyPatch(o Order, patch Record) (Order, error) {
    rec, err := o.Record()
    if err != nil { return o, err }
    for k, v := range patch {
        rec[k] = v
    }
    return DecodeOrder(rec)
}

// ActionKind names a queued mutation intent.
type ActionKind string

const (
    ActionMarkDelivered      ActionKind = "MarkDelivered"
    ActionUnmarkDelivered    ActionKind = "UnmarkDelivered"
    ActionDelete             ActionKind = "Delete"
    ActionVoid               ActionKind = "Void"
    ActionReactivate         ActionKind = "Reactivate"
    ActionReschedule         ActionKind = "Reschedule"
    ActionSetPriority        ActionKind = "SetPriority"
    ActionSetSequence        ActionKind = "SetSequence"
    ActionSettleMixedPayment ActionKind = "SettleMixedPayment"
    ActionAssignCourier      ActionKind = "AssignCourier"
    ActionEditOrder          ActionKind = "EditOrder"
)

// PendingAction is a mutation buffered while offline.
type PendingAction struct {
    ID        string         `json:"id"`
    Kind      ActionKind     `json:"kind"`
    Payload   map[string]any `json:"payload"`
    CreatedAt time.Time      `json:"createdAt"`
    Attempts  int            `json:"attempts"`
}

// OrderID returns the order the action targets.
func (a PendingAction) OrderID() string {
    id, _ := a.Payload["id"].(string)
    return id
}

// Bucket accumulates one payment category.
type Bucket struct {
    Amount int64 `json:"amount"`
    Count  int   `json:"count"`
}

func (b *Bucket) Add(amount int64) {
    b.Amount += amount
    b.Count++
}

// Advisory is raised when a mixed payment had no extractable cash amount.
type Advisory struct {
    Category PaymentMethod `json:"category"`
    OrderID  string        `json:"orderId"`
    Message  string        `json:"message"`
}

// ReconciliationSummary is the end-of-day cash picture. Derived, never stored.
type ReconciliationSummary struct {
    Cash                   Bucket     `json:"cash"`
    Card                   Bucket     `json:"card"`
    TransferPending        Bucket     `json:"transferPending"`
    Settled                Bucket     `json:"settled"`
    AmountOwedByCourier    int64      `json:"amountOwedByCourier"`
    TotalRecognizedRevenue int64      `json:"totalRecognizedRevenue"`
    Advisories             []Advisory `json:"advisories,omitempty"`
}

// LoadLine is one product of one order to put on the truck.
type LoadLine struct {
    Name     string `json:"name"`
    Quantity int64  `json:"quantity"`
    Customer string `json:"customer"`
    OrderID  string `json:"orderId"`
    CheckID  string `json:"checkId"`
}

// TierLoad holds the lines of one priority tier and their bulk count.
type TierLoad struct {
    Items []LoadLine `json:"items"`
    Bulk  int64      `json:"bulk"`
}

// LoadSummary is what goes on the truck for the pending orders.
type LoadSummary struct {
    Tiers     map[PriorityTier]TierLoad `json:"tiers"`
    TotalBulk int64                     `json:"totalBulk"`
}

// OrderSnapshot is the offline fallback copy of the last fetched orders.
type OrderSnapshot struct {
    Orders    []Order `json:"orders"`
    Timestamp int64   `json:"timestamp"`
}

// ChangeType is the kind of push notification sent by the remote store.
type ChangeType string

const (
    ChangeCreated ChangeType = "created"
    ChangeUpdated ChangeType = "updated"
    ChangeDeleted ChangeType = "deleted"
)

// Change is one push notification for a collection.
type Change struct {
    Collection string     `json:"collection"`
    Type       ChangeType `json:"type"`
    Before     Record     `json:"before,omitempty"`
    After      Record     `json:"after,omitempty"`
}
