package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/parcelview/internal/adapters/nats"
	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/pkg/metrics"
)

// wsMessage is sent from client to narrow the feed.
type wsMessage struct {
	Action string   `json:"action"` // "watch" | "unwatch" | "all"
	IDs    []string `json:"ids"`
}

// propertyFilter tracks which property ids a client wants. An empty filter
// passes every event.
type propertyFilter struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (f *propertyFilter) set(action string, ids []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch action {
	case "watch":
		if f.ids == nil {
			f.ids = make(map[string]struct{})
		}
		for _, id := range ids {
			f.ids[id] = struct{}{}
		}
	case "unwatch":
		for _, id := range ids {
			delete(f.ids, id)
		}
	case "all":
		f.ids = nil
	default:
		return false
	}
	return true
}

// match returns the subset of ids the client watches.
func (f *propertyFilter) match(ids []string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return ids
	}
	var out []string
	for _, id := range ids {
		if _, ok := f.ids[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// WebSocketHandler returns a handler that upgrades to WebSocket and relays
// property update events to connected clients.
// Clients send JSON: {"action":"watch","ids":["abc"]} to narrow the feed,
// {"action":"all"} to receive every update again.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		var filter propertyFilter

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		sub, err := nc.Subscribe(natsadapter.SubjectPropertiesUpdated, func(msg *nats.Msg) {
			var ev domain.PropertyEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				return
			}
			ids := filter.match(ev.IDs)
			if len(ids) == 0 {
				return
			}
			ev.IDs = ids
			_ = writeJSON(ev)
		})
		if err != nil {
			slog.Error("ws subscribe failed", "subject", natsadapter.SubjectPropertiesUpdated, "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if !filter.set(m.Action, m.IDs) {
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
				continue
			}
			_ = writeJSON(map[string]interface{}{"status": m.Action, "ids": m.IDs})
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
