package api

import (
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "deliverydesk/internal/model"
)

const heartbeatEvery = 15 * time.Second

// OrderStreamHandler handles GET /v1/orders/stream: order changes as server-sent events.
func (s *Server) OrderStreamHandler(w http.ResponseWriter, r *http.Request) {
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")

    ch, cancel := s.Store.Subscribe(model.CollectionOrders)
    defer cancel()

    heartbeat := func() {
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"online\":%t,\"ts\":\"%s\"}\n\n", s.Console.Online(), time.Now().UTC().Format(time.RFC3339))
        flusher.Flush()
    }
    heartbeat()
    ticker := time.NewTicker(heartbeatEvery)
    defer ticker.Stop()
    for {
        select {
        case <-r.Context().Done():
            return
        case evt, ok := <-ch:
            if !ok { return }
            b, _ := json.Marshal(evt)
            fmt.Fprintf(w, "event: order.%s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-ticker.C:
            heartbeat()
        }
    }
}
