package api

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "deliverydesk/internal/console"
    "deliverydesk/internal/model"
    "deliverydesk/internal/route"
)

func orderID(r *http.Request) string { return strings.TrimSpace(chi.URLParam(r, "orderId")) }

// ListOrders handles GET /v1/orders. ?delivered=true|false filters the route list.
func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request) {
    orders := s.Console.Orders()
    if v := r.URL.Query().Get("delivered"); v != "" {
        want := v == "true"
        kept := orders[:0]
        for _, o := range orders {
            if o.Delivered == want { kept = append(kept, o) }
        }
        orders = kept
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "items":        orders,
        "online":       s.Console.Online(),
        "fromSnapshot": s.Console.FromSnapshot(),
    })
}

func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
    o, ok := s.Console.Order(orderID(r))
    if !ok { writeProblem(w, http.StatusNotFound, "Order not found", "", r.URL.Path); return }
    writeJSON(w, http.StatusOK, o)
}

// CreateOrder handles POST /v1/orders.
func (s *Server) CreateOrder(w http.ResponseWriter, r *http.Request) {
    var in model.Order
    if err := decodeBody(r, &in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if in.ID == "" { in.ID = uuid.NewString() }
    if err := s.Console.Dispatch(r.Context(), console.CreateOrder{Order: in}); err != nil {
        s.writeError(w, r, err)
        return
    }
    created, _ := s.Console.Order(in.ID)
    writeJSON(w, http.StatusCreated, created)
}

// dispatch runs ev and answers with the order's cached state.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, ev console.Event) {
    if err := s.Console.Dispatch(r.Context(), ev); err != nil {
        s.writeError(w, r, err)
        return
    }
    if o, ok := s.Console.Order(orderID(r)); ok {
        writeJSON(w, http.StatusOK, map[string]any{"order": o, "queued": !s.Console.Online()})
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"id": orderID(r), "queued": !s.Console.Online()})
}

func (s *Server) MarkDelivered(w http.ResponseWriter, r *http.Request) {
    s.dispatch(w, r, console.MarkDelivered{ID: orderID(r)})
}

func (s *Server) UnmarkDelivered(w http.ResponseWriter, r *http.Request) {
    s.dispatch(w, r, console.UnmarkDelivered{ID: orderID(r)})
}

func (s *Server) VoidOrder(w http.ResponseWriter, r *http.Request) {
    s.dispatch(w, r, console.VoidOrder{ID: orderID(r)})
}

func (s *Server) ReactivateOrder(w http.ResponseWriter, r *http.Request) {
    s.dispatch(w, r, console.ReactivateOrder{ID: orderID(r)})
}

func (s *Server) DeleteOrder(w http.ResponseWriter, r *http.Request) {
    if err := s.Console.Dispatch(r.Context(), console.DeleteOrder{ID: orderID(r)}); err != nil {
        s.writeError(w, r, err)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// RescheduleOrder accepts an optional {"date":"YYYY-MM-DD"}; without it the
// order moves to the next business day.
func (s *Server) RescheduleOrder(w http.ResponseWriter, r *http.Request) {
    var in struct{ Date string `json:"date"` }
    if r.ContentLength != 0 {
        if err := decodeBody(r, &in); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
    }
    s.dispatch(w, r, console.RescheduleOrder{ID: orderID(r), Date: in.Date})
}

func (s *Server) SetPriority(w http.ResponseWriter, r *http.Request) {
    var in struct{ Tier string `json:"tier"` }
    if err := decodeBody(r, &in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    s.dispatch(w, r, console.SetPriority{ID: orderID(r), Tier: model.PriorityTier(strings.ToUpper(strings.TrimSpace(in.Tier)))})
}

// SetSequence takes {"value": ...}; anything negative or non-numeric becomes 0.
func (s *Server) SetSequence(w http.ResponseWriter, r *http.Request) {
    var in struct{ Value any `json:"value"` }
    if err := decodeBody(r, &in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    s.dispatch(w, r, console.SetSequence{ID: orderID(r), Value: in.Value})
}

func (s *Server) MoveOrder(w http.ResponseWriter, r *http.Request) {
    var in struct{ Direction string `json:"direction"` }
    if err := decodeBody(r, &in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    s.dispatch(w, r, console.MoveOrder{ID: orderID(r), Direction: route.Direction(strings.ToLower(in.Direction))})
}

func (s *Server) SettleMixedPayment(w http.ResponseWriter, r *http.Request) {
    s.dispatch(w, r, console.SettleMixedPayment{ID: orderID(r)})
}

func (s *Server) ConfirmTransfer(w http.ResponseWriter, r *http.Request) {
    s.dispatch(w, r, console.ConfirmTransfer{ID: orderID(r)})
}

// AssignCourier handles PUT /v1/orders/{orderId}/courier {"courier": "..."}.
// An empty courier clears the assignment.
func (s *Server) AssignCourier(w http.ResponseWriter, r *http.Request) {
    var in struct{ Courier string `json:"courier"` }
    if err := decodeBody(r, &in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    s.dispatch(w, r, console.AssignCourier{ID: orderID(r), Courier: in.Courier})
}

// EditOrder handles PUT /v1/orders/{orderId}. The total is recomputed from items.
func (s *Server) EditOrder(w http.ResponseWriter, r *http.Request) {
    var in struct {
        CustomerName  string              `json:"customerName"`
        Address       string              `json:"address"`
        Phone         string              `json:"phone"`
        PaymentMethod model.PaymentMethod `json:"paymentMethod"`
        Date          string              `json:"date"`
        Notes         string              `json:"notes"`
        Items         []model.OrderItem   `json:"items"`
    }
    if err := decodeBody(r, &in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    s.dispatch(w, r, console.EditOrder{ID: orderID(r), Edit: console.OrderEdit{
        CustomerName:  in.CustomerName,
        Address:       in.Address,
        Phone:         in.Phone,
        PaymentMethod: in.PaymentMethod,
        Date:          in.Date,
        Notes:         in.Notes,
        Items:         in.Items,
    }})
}

// LoadSummary handles GET /v1/load-summary?date=YYYY-MM-DD.
func (s *Server) LoadSummary(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, s.Console.LoadSummary(r.URL.Query().Get("date")))
}

// CustomerHistory handles GET /v1/customers/{phone}/orders.
func (s *Server) CustomerHistory(w http.ResponseWriter, r *http.Request) {
    orders, err := s.Console.CustomerHistory(r.Context(), chi.URLParam(r, "phone"))
    if err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": orders, "count": len(orders)})
}

// Reconciliation handles GET /v1/reconciliation.
func (s *Server) Reconciliation(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{
        "summary":    s.Console.Summary(r.Context()),
        "advisories": s.Console.Advisories(),
    })
}

// Queue handles GET /v1/queue.
func (s *Server) Queue(w http.ResponseWriter, r *http.Request) {
    pending := s.Console.PendingActions()
    writeJSON(w, http.StatusOK, map[string]any{"online": s.Console.Online(), "depth": len(pending), "actions": pending})
}

// SetConnectivity handles PUT /v1/connectivity {"online": bool}. Going online
// replays the queue before answering.
func (s *Server) SetConnectivity(w http.ResponseWriter, r *http.Request) {
    var in struct{ Online *bool `json:"online"` }
    if err := decodeBody(r, &in); err != nil || in.Online == nil {
        writeProblem(w, http.StatusBadRequest, "Invalid request", "online (bool) required", r.URL.Path)
        return
    }
    if err := s.Console.Dispatch(r.Context(), console.ConnectivityChanged{Online: *in.Online}); err != nil {
        s.writeError(w, r, err)
        return
    }
    s.Queue(w, r)
}

func (s *Server) SetEditing(w http.ResponseWriter, r *http.Request) {
    var in struct{ Editing *bool `json:"editing"` }
    if err := decodeBody(r, &in); err != nil || in.Editing == nil {
        writeProblem(w, http.StatusBadRequest, "Invalid request", "editing (bool) required", r.URL.Path)
        return
    }
    if err := s.Console.Dispatch(r.Context(), console.EditingChanged{Editing: *in.Editing}); err != nil {
        s.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]bool{"editing": s.Console.Editing()})
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
    if err := s.Console.Dispatch(r.Context(), console.Refresh{}); err != nil {
        s.writeError(w, r, err)
        return
    }
    s.ListOrders(w, r)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}
