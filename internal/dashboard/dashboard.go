// Package dashboard serves a read-only operational status surface: an HTTP
// JSON endpoint and a WebSocket stream of the same snapshot, polled from the
// state store. It never writes state.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"hyperwall-agent/internal/state"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Status is the read-only snapshot served over /api/status and /ws.
type Status struct {
	Timestamp      time.Time              `json:"timestamp"`
	Positions      []state.Position       `json:"positions"`
	DailyPnL       state.DailyPnL         `json:"daily_pnl"`
	KillSwitchOn   bool                   `json:"kill_switch_active"`
	KillSwitch     *state.KillSwitch      `json:"kill_switch,omitempty"`
	FailureCounter state.FailureCounter   `json:"failure_counter"`
}

// Dashboard polls the state store and fans the snapshot out over HTTP/WS.
type Dashboard struct {
	store *state.Store

	server   *http.Server
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Status
	stop      chan struct{}

	mu        sync.Mutex
	isRunning bool
}

func New(store *state.Store, port int) *Dashboard {
	d := &Dashboard{
		store:     store,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Status, 16),
		stop:      make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", d.handleIndex).Methods("GET")
	r.HandleFunc("/api/status", d.handleStatus).Methods("GET")
	r.HandleFunc("/ws", d.handleWebSocket).Methods("GET")

	d.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return d
}

// Start launches the poller, the broadcaster, and the HTTP server in the
// background; it returns immediately rather than blocking the caller.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isRunning {
		return fmt.Errorf("dashboard: already running")
	}

	go d.poller()
	go d.broadcaster()
	go func() {
		log.Info().Str("addr", d.server.Addr).Msg("dashboard: listening")
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("dashboard: server failed")
		}
	}()

	d.isRunning = true
	return nil
}

func (d *Dashboard) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isRunning {
		return nil
	}
	close(d.stop)

	d.clientsMu.Lock()
	for c := range d.clients {
		c.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.isRunning = false
	return d.server.Shutdown(ctx)
}

func (d *Dashboard) poller() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st, err := d.collect()
			if err != nil {
				log.Warn().Err(err).Msg("dashboard: status collection failed")
				continue
			}
			select {
			case d.broadcast <- st:
			default:
			}
		case <-d.stop:
			return
		}
	}
}

func (d *Dashboard) broadcaster() {
	for {
		select {
		case st := <-d.broadcast:
			d.fanOut(st)
		case <-d.stop:
			return
		}
	}
}

func (d *Dashboard) collect() (Status, error) {
	positions, err := d.store.GetPositions()
	if err != nil {
		return Status{}, err
	}
	daily, err := d.store.GetDailyPnL()
	if err != nil {
		return Status{}, err
	}
	active, err := d.store.IsActive()
	if err != nil {
		return Status{}, err
	}
	ks, _, err := d.store.GetKillSwitch()
	if err != nil {
		return Status{}, err
	}
	fc, err := d.store.GetFailureCounter()
	if err != nil {
		return Status{}, err
	}

	return Status{
		Timestamp:      time.Now().UTC(),
		Positions:      positions,
		DailyPnL:       daily,
		KillSwitchOn:   active,
		KillSwitch:     ks,
		FailureCounter: fc,
	}, nil
}

func (d *Dashboard) fanOut(st Status) {
	d.clientsMu.RLock()
	defer d.clientsMu.RUnlock()

	data, err := json.Marshal(st)
	if err != nil {
		log.Error().Err(err).Msg("dashboard: marshal status failed")
		return
	}
	for c := range d.clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			c.Close()
			delete(d.clients, c)
		}
	}
}

func (d *Dashboard) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := d.collect()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("dashboard: websocket upgrade failed")
		return
	}
	d.clientsMu.Lock()
	d.clients[conn] = true
	d.clientsMu.Unlock()

	if st, err := d.collect(); err == nil {
		if data, err := json.Marshal(st); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <title>hyperwall-agent status</title>
  <meta charset="UTF-8">
  <style>
    body { font-family: -apple-system, sans-serif; background: #0f1115; color: #e6e6e6; padding: 24px; }
    h1 { font-weight: 500; }
    pre { background: #181b21; padding: 16px; border-radius: 6px; overflow-x: auto; }
  </style>
</head>
<body>
  <h1>hyperwall-agent</h1>
  <pre id="status">connecting…</pre>
  <script>
    const el = document.getElementById('status');
    const proto = location.protocol === 'https:' ? 'wss' : 'ws';
    const ws = new WebSocket(proto + '://' + location.host + '/ws');
    ws.onmessage = (ev) => { el.textContent = JSON.stringify(JSON.parse(ev.data), null, 2); };
    ws.onerror = () => { el.textContent = 'connection error'; };
  </script>
</body>
</html>`
