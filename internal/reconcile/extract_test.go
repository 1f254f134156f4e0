package reconcile

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestExtractCashAmount(t *testing.T) {
    cases := []struct {
        notes string
        total int64
        want  int64
        ok    bool
    }{
        {"15000 efectivo resto transf", 20000, 15000, true},
        {"15.000 Efectivo", 20000, 15000, true},
        {"paga 5,000 pesos y el resto transferencia", 20000, 5000, true},
        {"3000 EFEC", 20000, 3000, true},
        {"2500cash", 20000, 2500, true},
        {"fono 912345678, 4000 efectivo", 20000, 4000, true},
        {"fono 912345678", 20000, 0, false},
        {"depto 1204, timbre malo", 20000, 0, false},
        {"50000 efectivo", 20000, 20000, true},
        {"4000 efectivos", 20000, 0, false},
        {"", 20000, 0, false},
    }
    for _, tc := range cases {
        got, ok := ExtractCashAmount(tc.notes, tc.total)
        assert.Equal(t, tc.ok, ok, tc.notes)
        assert.Equal(t, tc.want, got, tc.notes)
    }
}

func TestParseLegacyPrefersConfirmedTransfer(t *testing.T) {
    b := parseLegacy("PAGO MIXTO: Transferencia: $1.000, Transferencia PAGADA: $2.000")
    assert.True(t, b.transferConfirmed)
    assert.EqualValues(t, 2000, b.transfer)
    assert.False(t, b.hasCash)
    assert.False(t, isLegacyMixed("15000 efectivo"))
    assert.True(t, isLegacyMixed("pago mixto: algo"))
}
