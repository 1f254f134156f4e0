package api

import (
    "net/http"
    "time"

    "deliverydesk/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{
        "build":        buildinfo.Current(),
        "time":         time.Now().UTC().Format(time.RFC3339),
        "online":       s.Console.Online(),
        "editing":      s.Console.Editing(),
        "queueDepth":   len(s.Console.PendingActions()),
        "fromSnapshot": s.Console.FromSnapshot(),
        "config":       s.Settings,
    })
}
