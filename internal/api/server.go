package api

import (
    "net/http"

    "github.com/go-chi/chi/v5"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "deliverydesk/internal/console"
    "deliverydesk/internal/logger"
    "deliverydesk/internal/metrics"
    "deliverydesk/internal/store"
)

type Server struct {
    Console *console.Controller
    Store   store.Store
    Log     *logger.Logger
    // Settings is echoed on /debug; keep secrets out of it.
    Settings map[string]any
}

func NewServer(c *console.Controller, s store.Store, log *logger.Logger) *Server {
    if log == nil { log = logger.Nop() }
    return &Server{Console: c, Store: s, Log: log}
}

// Router wires every endpoint onto a chi mux.
func (s *Server) Router() http.Handler {
    metrics.RegisterDefault()
    r := chi.NewRouter()
    r.Use(recoverer(s.Log), instrument(s.Log))

    r.Get("/healthz", s.HealthHandler)
    r.Get("/readyz", s.ReadyHandler)
    r.Get("/debug", s.DebugJSON)
    r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    r.Get("/openapi.yaml", s.OpenAPIHandler)
    r.Get("/openapi.json", s.OpenAPIJSONHandler)
    r.Get("/docs", s.DocsHandler)

    r.Route("/v1", func(r chi.Router) {
        r.Route("/orders", func(r chi.Router) {
            r.Get("/", s.ListOrders)
            r.Post("/", s.CreateOrder)
            r.Get("/stream", s.OrderStreamHandler)
            r.Get("/ws", s.OrderWSHandler)
            r.Route("/{orderId}", func(r chi.Router) {
                r.Get("/", s.GetOrder)
                r.Put("/", s.EditOrder)
                r.Delete("/", s.DeleteOrder)
                r.Post("/deliver", s.MarkDelivered)
                r.Post("/undeliver", s.UnmarkDelivered)
                r.Post("/void", s.VoidOrder)
                r.Post("/reactivate", s.ReactivateOrder)
                r.Post("/reschedule", s.RescheduleOrder)
                r.Put("/priority", s.SetPriority)
                r.Put("/sequence", s.SetSequence)
                r.Post("/move", s.MoveOrder)
                r.Post("/settle", s.SettleMixedPayment)
                r.Post("/confirm-transfer", s.ConfirmTransfer)
                r.Put("/courier", s.AssignCourier)
            })
        })
        r.Get("/reconciliation", s.Reconciliation)
        r.Get("/load-summary", s.LoadSummary)
        r.Get("/customers/{phone}/orders", s.CustomerHistory)
        r.Get("/queue", s.Queue)
        r.Put("/connectivity", s.SetConnectivity)
        r.Put("/editing", s.SetEditing)
        r.Post("/refresh", s.Refresh)
    })
    return r
}
