package api

import (
    "bufio"
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/gorilla/websocket"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "deliverydesk/internal/console"
    "deliverydesk/internal/localstore"
    "deliverydesk/internal/model"
    "deliverydesk/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Memory, http.Handler) {
    t.Helper()
    st := store.NewMemory()
    c := console.New(console.Options{Store: st, Local: localstore.NewMemory(), Online: true})
    require.NoError(t, c.Start(context.Background()))
    s := NewServer(c, st, nil)
    return s, st, s.Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
    t.Helper()
    var rd *bytes.Reader
    if body != "" { rd = bytes.NewReader([]byte(body)) } else { rd = bytes.NewReader(nil) }
    req := httptest.NewRequest(method, path, rd)
    if body != "" { req.Header.Set("Content-Type", "application/json") }
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
    t.Helper()
    var v T
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
    return v
}

func TestHealthReady(t *testing.T) {
    _, _, h := newTestServer(t)
    assert.Equal(t, 200, do(t, h, http.MethodGet, "/healthz", "").Code)
    assert.Equal(t, 200, do(t, h, http.MethodGet, "/readyz", "").Code)
}

func TestCreateDeliverReconcile(t *testing.T) {
    _, _, h := newTestServer(t)

    rr := do(t, h, http.MethodPost, "/v1/orders", `{"customerName":"Ana","address":"Calle 1","total":12000,"paymentMethod":"E"}`)
    require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
    created := decode[model.Order](t, rr)
    require.NotEmpty(t, created.ID)
    assert.Equal(t, model.PaymentCash, created.PaymentMethod)
    assert.Equal(t, model.TierC, created.PriorityTier)

    rr = do(t, h, http.MethodGet, "/v1/orders/"+created.ID, "")
    require.Equal(t, http.StatusOK, rr.Code)

    rr = do(t, h, http.MethodPost, "/v1/orders/"+created.ID+"/deliver", "")
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    assert.Contains(t, rr.Body.String(), `"queued":false`)

    rr = do(t, h, http.MethodGet, "/v1/reconciliation", "")
    require.Equal(t, http.StatusOK, rr.Code)
    body := decode[struct {
        Summary model.ReconciliationSummary `json:"summary"`
    }](t, rr)
    assert.EqualValues(t, 12000, body.Summary.AmountOwedByCourier)
    assert.Equal(t, model.Bucket{Amount: 12000, Count: 1}, body.Summary.Cash)

    rr = do(t, h, http.MethodDelete, "/v1/orders/"+created.ID, "")
    assert.Equal(t, http.StatusConflict, rr.Code)
    assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

    rr = do(t, h, http.MethodGet, "/v1/orders?delivered=false", "")
    list := decode[struct {
        Items []model.Order `json:"items"`
    }](t, rr)
    assert.Empty(t, list.Items)
}

func TestCreateValidation(t *testing.T) {
    _, _, h := newTestServer(t)
    assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/orders", `{"customerName":"Ana"}`).Code)
    assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/orders", `{not json`).Code)
}

func TestOfflineQueueAndReplay(t *testing.T) {
    _, st, h := newTestServer(t)
    _, err := st.Insert(context.Background(), model.CollectionOrders, model.Record{"id": "o1", "total": 5000})
    require.NoError(t, err)
    require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/refresh", "").Code)

    require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/connectivity", `{"online":false}`).Code)
    rr := do(t, h, http.MethodPut, "/v1/orders/o1/priority", `{"tier":"a"}`)
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    assert.Contains(t, rr.Body.String(), `"queued":true`)

    q := decode[struct {
        Depth   int                   `json:"depth"`
        Actions []model.PendingAction `json:"actions"`
    }](t, do(t, h, http.MethodGet, "/v1/queue", ""))
    require.Equal(t, 1, q.Depth)
    assert.Equal(t, model.ActionSetPriority, q.Actions[0].Kind)

    rr = do(t, h, http.MethodPut, "/v1/connectivity", `{"online":true}`)
    require.Equal(t, http.StatusOK, rr.Code)
    assert.Contains(t, rr.Body.String(), `"depth":0`)

    recs, err := st.Query(context.Background(), model.CollectionOrders, store.Query{Filter: map[string]any{"id": "o1"}})
    require.NoError(t, err)
    assert.Equal(t, "A", recs[0]["priorityTier"])

    assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/v1/connectivity", `{}`).Code)
}

func TestMutationErrors(t *testing.T) {
    _, st, h := newTestServer(t)
    _, err := st.Insert(context.Background(), model.CollectionOrders, model.Record{"id": "o1", "total": 5000})
    require.NoError(t, err)

    assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/v1/orders/ghost/deliver", "").Code)
    assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/v1/orders/o1/priority", `{"tier":"Z"}`).Code)
    assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/orders/o1/move", `{"direction":"left"}`).Code)
    assert.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/orders/o1/sequence", `{"value":"-5"}`).Code)
    assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/orders/o1/reschedule", "").Code)
}

func TestEditingDefersRefresh(t *testing.T) {
    s, _, h := newTestServer(t)
    require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/editing", `{"editing":true}`).Code)
    assert.True(t, s.Console.Editing())
    require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/editing", `{"editing":false}`).Code)
    assert.False(t, s.Console.Editing())
}

func TestOpenAPIAndMetrics(t *testing.T) {
    _, _, h := newTestServer(t)
    rr := do(t, h, http.MethodGet, "/openapi.json", "")
    require.Equal(t, http.StatusOK, rr.Code)
    doc := decode[map[string]any](t, rr)
    assert.Contains(t, doc, "paths")

    do(t, h, http.MethodGet, "/healthz", "")
    rr = do(t, h, http.MethodGet, "/metrics", "")
    require.Equal(t, http.StatusOK, rr.Code)
    assert.Contains(t, rr.Body.String(), `http_requests_total{method="GET",path="/healthz",status="200"}`)

    rr = do(t, h, http.MethodGet, "/debug", "")
    require.Equal(t, http.StatusOK, rr.Code)
    assert.Contains(t, rr.Body.String(), `"build"`)
}

func TestOrderStreamSSE(t *testing.T) {
    _, st, h := newTestServer(t)
    srv := httptest.NewServer(h)
    defer srv.Close()

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/orders/stream", nil)
    resp, err := srv.Client().Do(req)
    require.NoError(t, err)
    defer func() { _ = resp.Body.Close() }()
    rd := bufio.NewReader(resp.Body)

    line, err := rd.ReadString('\n')
    require.NoError(t, err)
    assert.Equal(t, "event: heartbeat\n", line)
    _, _ = rd.ReadString('\n')
    _, _ = rd.ReadString('\n')

    _, err = st.Insert(context.Background(), model.CollectionOrders, model.Record{"id": "o9", "total": 1})
    require.NoError(t, err)
    line, err = rd.ReadString('\n')
    require.NoError(t, err)
    assert.Equal(t, "event: order.created\n", line)
    line, err = rd.ReadString('\n')
    require.NoError(t, err)
    assert.True(t, strings.HasPrefix(line, "data: "))
    assert.Contains(t, line, `"o9"`)
}

func TestOrderChangesWebSocket(t *testing.T) {
    _, st, h := newTestServer(t)
    srv := httptest.NewServer(h)
    defer srv.Close()

    url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/orders/ws"
    conn, _, err := websocket.DefaultDialer.Dial(url, nil)
    require.NoError(t, err)
    defer func() { _ = conn.Close() }()
    _ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

    var msg wsMessage
    require.NoError(t, conn.WriteJSON(wsMessage{Type: "connection_init"}))
    require.NoError(t, conn.ReadJSON(&msg))
    assert.Equal(t, "connection_ack", msg.Type)

    require.NoError(t, conn.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: []byte(`{"query":"subscription { orderChanges }"}`)}))
    // messages are handled in order, so the pong means the subscription is live
    require.NoError(t, conn.WriteJSON(wsMessage{Type: "ping"}))
    require.NoError(t, conn.ReadJSON(&msg))
    require.Equal(t, "pong", msg.Type)

    _, err = st.Insert(context.Background(), model.CollectionOrders, model.Record{"id": "w1", "total": 1})
    require.NoError(t, err)
    require.NoError(t, conn.ReadJSON(&msg))
    assert.Equal(t, "next", msg.Type)
    assert.Equal(t, "1", msg.ID)
    assert.Contains(t, string(msg.Payload), `"orderChanges"`)
    assert.Contains(t, string(msg.Payload), `"w1"`)
}

func TestCourierEditLoadAndHistory(t *testing.T) {
    _, _, h := newTestServer(t)

    rr := do(t, h, http.MethodPost, "/v1/orders", `{"customerName":"Ana","address":"Calle 1","phone":"5551234","total":3000,"priorityTier":"A","items":[{"name":"Pan","quantity":2,"price":1500}]}`)
    require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
    id := decode[model.Order](t, rr).ID

    rr = do(t, h, http.MethodPut, "/v1/orders/"+id+"/courier", `{"courier":"courier_2"}`)
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    assert.Contains(t, rr.Body.String(), `"assignedTo":"courier_2"`)

    rr = do(t, h, http.MethodPut, "/v1/orders/"+id, `{"address":"Calle 9","phone":"5551234","paymentMethod":"DC","items":[{"name":"Pan","quantity":4,"price":1500}]}`)
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    edited := decode[struct {
        Order model.Order `json:"order"`
    }](t, rr).Order
    assert.EqualValues(t, 6000, edited.Total)
    assert.Equal(t, model.PaymentCard, edited.PaymentMethod)
    assert.Equal(t, "courier_2", edited.AssignedTo)

    rr = do(t, h, http.MethodPut, "/v1/orders/"+id, `{"address":"Calle 9","phone":"5551234","items":[]}`)
    assert.Equal(t, http.StatusBadRequest, rr.Code)

    rr = do(t, h, http.MethodGet, "/v1/load-summary", "")
    require.Equal(t, http.StatusOK, rr.Code)
    load := decode[model.LoadSummary](t, rr)
    assert.EqualValues(t, 4, load.TotalBulk)
    require.Len(t, load.Tiers[model.TierA].Items, 1)

    rr = do(t, h, http.MethodGet, "/v1/customers/5551234/orders", "")
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    hist := decode[struct {
        Items []model.Order `json:"items"`
        Count int           `json:"count"`
    }](t, rr)
    require.Equal(t, 1, hist.Count)
    assert.Equal(t, id, hist.Items[0].ID)

    assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/customers/12/orders", "").Code)
}
