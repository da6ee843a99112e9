// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package node

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"thermonode/internal/events"
	"thermonode/pkg/eventbus"
	"thermonode/pkg/logger"
)

// wireMessage is what websocket clients receive.
type wireMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type clientSet struct {
	clients map[*websocket.Conn]bool
	mutex   sync.Mutex
}

func (c *clientSet) broadcast(pm *websocket.PreparedMessage, log *logger.Logger) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for ws := range c.clients {
		if err := ws.WritePreparedMessage(pm); err != nil {
			log.Error("failed to write message: %v", err)
			ws.Close()
			delete(c.clients, ws)
		}
	}
}

// add registers ws and sends it the initial messages under the same lock
// so they cannot interleave with a broadcast.
func (c *clientSet) add(ws *websocket.Conn, initial []*websocket.PreparedMessage) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, pm := range initial {
		if err := ws.WritePreparedMessage(pm); err != nil {
			return err
		}
	}
	c.clients[ws] = true
	return nil
}

func (c *clientSet) remove(ws *websocket.Conn) {
	c.mutex.Lock()
	delete(c.clients, ws)
	c.mutex.Unlock()
}

func (c *clientSet) closeAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for ws := range c.clients {
		ws.Close()
		delete(c.clients, ws)
	}
}

// WebService mirrors the panel and session state to browsers. It is read
// only: nothing sent by a client reaches the node.
type WebService struct {
	log     *logger.Logger
	bus     *eventbus.Bus
	stats   func() Stats
	clients clientSet
}

func NewWebService(bus *eventbus.Bus, stats func() Stats) *WebService {
	return &WebService{
		log:     logger.New("NodeWeb"),
		bus:     bus,
		stats:   stats,
		clients: clientSet{clients: make(map[*websocket.Conn]bool)},
	}
}

// Run relays bus events to connected clients until ctx is done.
func (s *WebService) Run(ctx context.Context) {
	s.log.Info("Running...")
	defer s.clients.closeAll()

	display, unsubD := s.bus.Subscribe(ctx, events.TopicDisplay, false)
	defer unsubD()
	sess, unsubS := s.bus.Subscribe(ctx, events.TopicSession, false)
	defer unsubS()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stopped")
			return
		case ev, ok := <-display:
			if !ok {
				return
			}
			s.broadcast("display", ev)
		case ev, ok := <-sess:
			if !ok {
				return
			}
			s.broadcast("session", ev)
		}
	}
}

func prepare(kind string, data any) (*websocket.PreparedMessage, error) {
	b, err := json.Marshal(wireMessage{Type: kind, Data: data})
	if err != nil {
		return nil, err
	}
	return websocket.NewPreparedMessage(websocket.TextMessage, b)
}

func (s *WebService) broadcast(kind string, data any) {
	pm, err := prepare(kind, data)
	if err != nil {
		s.log.Error("failed to prepare message: %v", err)
		return
	}
	s.clients.broadcast(pm, s.log)
}

func (s *WebService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ws":
		s.serveWebSocket(w, r)
	case "/stats":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"node": s.stats(),
			"bus":  s.bus.Stats(),
		})
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(mirrorPage))
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		if strings.Contains(origin, "localhost") {
			return true
		}
		return strings.Contains(origin, r.Host)
	},
}

func (s *WebService) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade websocket: %v", err)
		return
	}
	defer func() {
		s.clients.remove(ws)
		ws.Close()
	}()

	var initial []*websocket.PreparedMessage
	for _, t := range []struct {
		topic eventbus.Topic
		kind  string
	}{{events.TopicDisplay, "display"}, {events.TopicSession, "session"}} {
		ev, ok := s.bus.GetLast(t.topic)
		if !ok {
			continue
		}
		pm, err := prepare(t.kind, ev)
		if err != nil {
			s.log.Error("failed to prepare message: %v", err)
			continue
		}
		initial = append(initial, pm)
	}
	if err := s.clients.add(ws, initial); err != nil {
		s.log.Debug("client gone before first message: %v", err)
		return
	}

	for {
		if _, _, err := ws.NextReader(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws read: %v", err)
			}
			return
		}
	}
}

const mirrorPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Thermostat Node</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2em; background: #f9f9f9; color: #333; }
    .panel { background:#000; color:#fff; font-family: monospace; font-size: 2em;
             width: 8em; padding: 0.5em; border-radius: 6px; line-height: 1.6; }
    .down { color: #dc3545; } .up { color: #28a745; }
  </style>
</head>
<body>
  <h1>Thermostat Node</h1>
  <div class="panel"><div id="r0">--</div><div id="r1">--</div><div id="r2">--</div></div>
  <p>Broker: <span id="sess" class="down">unknown</span></p>
  <p><a href="stats">stats</a></p>
  <script>
    const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + location.pathname.replace(/\/$/, "") + "/ws");
    ws.onmessage = (e) => {
      const m = JSON.parse(e.data);
      if (m.type === "display") {
        m.data.rows.forEach((r, i) => document.getElementById("r" + i).textContent = r);
      } else if (m.type === "session") {
        const el = document.getElementById("sess");
        el.textContent = m.data.connected ? "connected as " + m.data.client_id : "reconnecting (" + m.data.attempts + " attempts)";
        el.className = m.data.connected ? "up" : "down";
      }
    };
  </script>
</body>
</html>
`
