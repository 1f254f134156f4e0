package store

import (
    "testing"
    "time"

    "deliverydesk/internal/model"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("orders")

    evt := model.Change{Collection: "orders", Type: model.ChangeUpdated, After: model.Record{"x": 1}}
    b.Publish(evt)

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.After["x"].(int) != 1 { t.Fatalf("bad payload: %+v", got.After) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe("orders", ch)
    if _, ok := <-ch; ok { t.Fatal("channel should be closed after unsubscribe") }
    // second unsubscribe is a no-op
    b.Unsubscribe("orders", ch)
}

func TestBrokerIgnoresOtherCollections(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("orders")
    defer b.Unsubscribe("orders", ch)
    b.Publish(model.Change{Collection: "drivers", Type: model.ChangeCreated})
    select {
    case evt := <-ch:
        t.Fatalf("unexpected event %+v", evt)
    case <-time.After(50 * time.Millisecond):
    }
}
