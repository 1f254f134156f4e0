// Package main runs a demo WebSocket client for order change events.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"deliverydesk/internal/logger"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "ws-client", Format: "console", Output: os.Stderr})
	port := os.Getenv("DESK_PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/orders/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logg.Error(ctx, "dial failed", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		logg.Error(ctx, "init failed", err)
		os.Exit(1)
	}
	pl, _ := json.Marshal(map[string]any{"query": "subscription { orderChanges }"})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		logg.Error(ctx, "subscribe failed", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				logg.Error(ctx, "read failed", err)
				return
			}
			logg.Info(logg.WithField(ctx, "payload", string(m.Payload)), "WS <- "+m.Type)
		}
	}()

	// Create an order and deliver it so the stream has something to show
	time.Sleep(500 * time.Millisecond)
	body := []byte(`{"customerName":"Demo","address":"Av. Siempre Viva 742","total":15000,"paymentMethod":"mixed-pending","notes":"5000 efectivo resto transf"}`)
	resp, err := http.Post(base+"/v1/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		logg.Error(ctx, "create order failed", err)
		os.Exit(1)
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)
	_ = resp.Body.Close()
	logg.Info(logg.WithField(ctx, "order_id", created.ID), "order created")

	if created.ID != "" {
		if resp, err := http.Post(base+"/v1/orders/"+created.ID+"/deliver", "application/json", nil); err == nil {
			_ = resp.Body.Close()
		}
	}

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
