package store

import (
    "context"
    "errors"

    "deliverydesk/internal/model"
)

// Store is the remote backing store the console talks to. It mirrors a hosted
// table API: plain request/response calls plus a push notification stream.
type Store interface {
    Query(ctx context.Context, collection string, q Query) ([]model.Record, error)
    Insert(ctx context.Context, collection string, rec model.Record) (model.Record, error)
    Update(ctx context.Context, collection, id string, patch model.Record) error
    Delete(ctx context.Context, collection, id string) error

    // Subscribe streams change notifications for a collection until cancel is called.
    Subscribe(collection string) (changes <-chan model.Change, cancel func())
}

// Query narrows and orders a read. Filter matches fields by equality.
type Query struct {
    Filter     map[string]any
    OrderBy    string
    Descending bool
    Limit      int
}

var (
    ErrNotFound = errors.New("not found")
    // ErrRejected is returned when the store refuses a write (missing id, bad field).
    ErrRejected = errors.New("rejected by store")
)
