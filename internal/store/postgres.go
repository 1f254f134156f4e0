package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "deliverydesk/internal/model"
)

// Postgres keeps every collection in one jsonb table so the console can
// treat it like the hosted table API it stands in for.
type Postgres struct {
    db     *sql.DB
    broker ChangeBroker
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
    collection text        NOT NULL,
    id         text        NOT NULL,
    data       jsonb       NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS records_data_gin ON records USING gin (data);
`

func NewPostgres(dsn string, b ChangeBroker) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    if b == nil { b = NewBroker() }
    return &Postgres{db: db, broker: b}, nil
}

// Migrate creates the records table if needed.
func (p *Postgres) Migrate(ctx context.Context) error {
    _, err := p.db.ExecContext(ctx, schema)
    return err
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Query(ctx context.Context, collection string, q Query) ([]model.Record, error) {
    filter, err := json.Marshal(q.Filter)
    if err != nil { return nil, err }
    if q.Filter == nil { filter = []byte(`{}`) }
    stmt := `SELECT data FROM records WHERE collection=$1 AND data @> $2::jsonb`
    args := []any{collection, string(filter)}
    if q.OrderBy != "" {
        dir := "ASC"
        if q.Descending { dir = "DESC" }
        args = append(args, q.OrderBy)
        stmt += fmt.Sprintf(" ORDER BY data -> $%d %s, created_at", len(args), dir)
    } else {
        stmt += " ORDER BY created_at"
    }
    if q.Limit > 0 {
        args = append(args, q.Limit)
        stmt += fmt.Sprintf(" LIMIT $%d", len(args))
    }
    rows, err := p.db.QueryContext(ctx, stmt, args...)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Record{}
    for rows.Next() {
        var raw []byte
        if err := rows.Scan(&raw); err != nil { return nil, err }
        rec, err := decodeRecord(raw)
        if err != nil { return nil, err }
        out = append(out, rec)
    }
    return out, rows.Err()
}

func (p *Postgres) Insert(ctx context.Context, collection string, rec model.Record) (model.Record, error) {
    rec = clone(rec)
    id, _ := rec["id"].(string)
    if id == "" {
        id = uuid.New().String()
        rec["id"] = id
    }
    if _, ok := rec["createdAt"]; !ok {
        rec["createdAt"] = time.Now().UTC().Format(time.RFC3339Nano)
    }
    data, err := json.Marshal(rec)
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrRejected, err) }
    res, err := p.db.ExecContext(ctx, `INSERT INTO records (collection, id, data) VALUES ($1,$2,$3::jsonb) ON CONFLICT DO NOTHING`, collection, id, string(data))
    if err != nil { return nil, err }
    if n, _ := res.RowsAffected(); n == 0 {
        return nil, fmt.Errorf("%w: duplicate id %s", ErrRejected, id)
    }
    p.broker.Publish(model.Change{Collection: collection, Type: model.ChangeCreated, After: clone(rec)})
    return rec, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, patch model.Record) error {
    if id == "" { return fmt.Errorf("%w: missing id", ErrRejected) }
    patch = clone(patch)
    delete(patch, "id")
    data, err := json.Marshal(patch)
    if err != nil { return fmt.Errorf("%w: %v", ErrRejected, err) }

    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func(){ _ = tx.Rollback() }()

    var beforeRaw, afterRaw []byte
    err = tx.QueryRowContext(ctx, `SELECT data FROM records WHERE collection=$1 AND id=$2 FOR UPDATE`, collection, id).Scan(&beforeRaw)
    if errors.Is(err, sql.ErrNoRows) { return ErrNotFound }
    if err != nil { return err }
    err = tx.QueryRowContext(ctx, `UPDATE records SET data = data || $3::jsonb WHERE collection=$1 AND id=$2 RETURNING data`, collection, id, string(data)).Scan(&afterRaw)
    if err != nil { return err }
    if err := tx.Commit(); err != nil { return err }

    before, _ := decodeRecord(beforeRaw)
    after, _ := decodeRecord(afterRaw)
    p.broker.Publish(model.Change{Collection: collection, Type: model.ChangeUpdated, Before: before, After: after})
    return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
    var raw []byte
    err := p.db.QueryRowContext(ctx, `DELETE FROM records WHERE collection=$1 AND id=$2 RETURNING data`, collection, id).Scan(&raw)
    if errors.Is(err, sql.ErrNoRows) { return ErrNotFound }
    if err != nil { return err }
    before, _ := decodeRecord(raw)
    p.broker.Publish(model.Change{Collection: collection, Type: model.ChangeDeleted, Before: before})
    return nil
}

func (p *Postgres) Subscribe(collection string) (<-chan model.Change, func()) {
    return subscribe(p.broker, collection)
}

func decodeRecord(raw []byte) (model.Record, error) {
    var rec model.Record
    if err := json.Unmarshal(raw, &rec); err != nil { return nil, err }
    return rec, nil
}
