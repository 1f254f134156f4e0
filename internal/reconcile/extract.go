package reconcile

import (
    "regexp"
    "strconv"
    "strings"
)

// An amount counts as cash only when a cash keyword follows it, so phone
// numbers and order references in notes are ignored.
var cashAmountPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d{3})*)\s*(?:efectivo|efec|pesos|cash)\b`)

// legacy itemized notes, e.g. "PAGO MIXTO: 💵 Efectivo: $5.000, 🔄 Transferencia: $7.000"
var (
    legacyMarkers          = []string{"PAGO MIXTO:", "MIXED PAYMENT:"}
    legacyCashPattern      = regexp.MustCompile(`(?i)(?:efectivo|cash)\s*:\s*\$?\s*([\d.,]+)`)
    legacyCardPattern      = regexp.MustCompile(`(?i)(?:tarjeta|card)\s*:\s*\$?\s*([\d.,]+)`)
    legacyTransferPattern  = regexp.MustCompile(`(?i)(?:transferencia|transfer)\s*:\s*\$?\s*([\d.,]+)`)
    legacyConfirmedPattern = regexp.MustCompile(`(?i)(?:transferencia\s+pagada|transfer\s+confirmed)\s*:\s*\$?\s*([\d.,]+)`)
)

// ExtractCashAmount finds the cash portion written in free-text notes.
// The result is clamped to [0, total].
func ExtractCashAmount(notes string, total int64) (int64, bool) {
    m := cashAmountPattern.FindStringSubmatch(notes)
    if m == nil { return 0, false }
    return clamp(parseAmount(m[1]), total), true
}

// legacyBreakdown is an itemized mixed payment from the older note format.
type legacyBreakdown struct {
    cash, card, transfer int64
    hasCash, hasCard     bool
    hasTransfer          bool
    transferConfirmed    bool
}

func isLegacyMixed(notes string) bool {
    upper := strings.ToUpper(notes)
    for _, m := range legacyMarkers {
        if strings.Contains(upper, m) { return true }
    }
    return false
}

func parseLegacy(notes string) legacyBreakdown {
    var b legacyBreakdown
    if m := legacyCashPattern.FindStringSubmatch(notes); m != nil {
        b.cash, b.hasCash = parseAmount(m[1]), true
    }
    if m := legacyCardPattern.FindStringSubmatch(notes); m != nil {
        b.card, b.hasCard = parseAmount(m[1]), true
    }
    if m := legacyConfirmedPattern.FindStringSubmatch(notes); m != nil {
        b.transfer, b.hasTransfer, b.transferConfirmed = parseAmount(m[1]), true, true
    } else if m := legacyTransferPattern.FindStringSubmatch(notes); m != nil {
        b.transfer, b.hasTransfer = parseAmount(m[1]), true
    }
    return b
}

// parseAmount drops thousands separators; "15.000" and "15,000" are both 15000.
func parseAmount(s string) int64 {
    digits := strings.NewReplacer(".", "", ",", "").Replace(s)
    n, err := strconv.ParseInt(digits, 10, 64)
    if err != nil || n < 0 { return 0 }
    return n
}

func clamp(v, total int64) int64 {
    if v < 0 { return 0 }
    if v > total { return total }
    return v
}
