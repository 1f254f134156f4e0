package store

import (
    "sync"

    "deliverydesk/internal/model"
)

// ChangeBroker fans change notifications out to subscribers of a collection.
type ChangeBroker interface {
    Subscribe(collection string) chan model.Change
    Unsubscribe(collection string, ch chan model.Change)
    Publish(evt model.Change)
}

// Broker is the in-process ChangeBroker.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan model.Change]struct{} // collection -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan model.Change]struct{}{}}
}

func (b *Broker) Subscribe(collection string) chan model.Change {
    ch := make(chan model.Change, 16)
    b.mu.Lock()
    if b.subs[collection] == nil { b.subs[collection] = map[chan model.Change]struct{}{} }
    b.subs[collection][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(collection string, ch chan model.Change) {
    b.mu.Lock()
    defer b.mu.Unlock()
    m := b.subs[collection]
    if _, ok := m[ch]; !ok { return }
    delete(m, ch)
    if len(m) == 0 { delete(b.subs, collection) }
    close(ch)
}

// Publish never blocks; slow subscribers miss events.
func (b *Broker) Publish(evt model.Change) {
    b.mu.Lock()
    m := b.subs[evt.Collection]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}

// subscribe adapts a ChangeBroker to the Store.Subscribe signature.
func subscribe(b ChangeBroker, collection string) (<-chan model.Change, func()) {
    ch := b.Subscribe(collection)
    var once sync.Once
    return ch, func() { once.Do(func() { b.Unsubscribe(collection, ch) }) }
}
