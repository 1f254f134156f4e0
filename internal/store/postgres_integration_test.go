//go:build postgres_integration

package store

import (
    "os"
    "testing"

    "deliverydesk/internal/model"
)

func TestPostgresRoundTrip(t *testing.T) {
    dsn := os.Getenv("DESK_DATABASE_URL")
    if dsn == "" { t.Skip("DESK_DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn, nil)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    if err := p.Ping(t.Context()); err != nil { t.Fatalf("Ping: %v", err) }
    if err := p.Migrate(t.Context()); err != nil { t.Fatalf("Migrate: %v", err) }

    rec, err := p.Insert(t.Context(), "orders_it", model.Record{"total": 100, "delivered": false})
    if err != nil { t.Fatalf("Insert: %v", err) }
    id := rec["id"].(string)
    defer func() { _ = p.Delete(t.Context(), "orders_it", id) }()
    if err := p.Update(t.Context(), "orders_it", id, model.Record{"delivered": true}); err != nil { t.Fatalf("Update: %v", err) }
    rows, err := p.Query(t.Context(), "orders_it", Query{Filter: map[string]any{"id": id}})
    if err != nil { t.Fatalf("Query: %v", err) }
    if len(rows) != 1 || rows[0]["delivered"] != true { t.Fatalf("unexpected rows: %+v", rows) }
}
