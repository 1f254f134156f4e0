package offline

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "deliverydesk/internal/localstore"
    "deliverydesk/internal/model"
    "deliverydesk/internal/store"
)

var storeQueryAll = store.Query{}

func TestSnapshotRoundTrip(t *testing.T) {
    ctx := context.Background()
    s := localstore.NewMemory()

    _, ok, err := LoadSnapshot(ctx, s)
    require.NoError(t, err)
    assert.False(t, ok)

    at := time.UnixMilli(1_700_000_000_000)
    orders := []model.Order{{ID: "o1", Total: 250, PaymentMethod: model.PaymentCash}}
    require.NoError(t, SaveSnapshot(ctx, s, orders, at))

    snap, ok, err := LoadSnapshot(ctx, s)
    require.NoError(t, err)
    require.True(t, ok)
    assert.Equal(t, at.UnixMilli(), snap.Timestamp)
    require.Len(t, snap.Orders, 1)
    assert.Equal(t, "o1", snap.Orders[0].ID)
    assert.EqualValues(t, 250, snap.Orders[0].Total)
}

func TestSnapshotMalformed(t *testing.T) {
    ctx := context.Background()
    s := localstore.NewMemory()
    require.NoError(t, s.Set(ctx, SnapshotKey, "[]oops"))
    _, ok, err := LoadSnapshot(ctx, s)
    assert.Error(t, err)
    assert.False(t, ok)
}
