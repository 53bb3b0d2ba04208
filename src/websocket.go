package soti

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = 30 * time.Second
)

// LiveFeed sends every record, as JSON, to the browsers attached on /ws.
type LiveFeed struct {
	upgrader websocket.Upgrader
	logger   *log.Logger
	metrics  *Metrics

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex // per connection write lock
}

func NewLiveFeed(logger *log.Logger, metrics *Metrics) *LiveFeed {
	return &LiveFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // read only feed
			},
		},
		logger:  logger,
		metrics: metrics,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Clients is the number of attached browsers.
func (f *LiveFeed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var conn, err = f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("WebSocket: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	var writeMu = &sync.Mutex{}

	f.mu.Lock()
	f.clients[conn] = writeMu
	f.mu.Unlock()
	f.metrics.ClientConnected("websocket")
	f.logger.Info("WebSocket: client attached", "remote", r.RemoteAddr)

	defer f.remove(conn)

	conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	var done = make(chan struct{})
	defer close(done)

	go func() {
		var ticker = time.NewTicker(wsPingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				var perr = conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout))
				writeMu.Unlock()
				if perr != nil {
					return
				}
			}
		}
	}()

	// Nothing useful comes from the browser; reading keeps the pongs flowing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.logger.Warn("WebSocket: read error", "err", err)
			}
			return
		}
	}
}

func (f *LiveFeed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	var _, ok = f.clients[conn]
	delete(f.clients, conn)
	f.mu.Unlock()

	if ok {
		conn.Close()
		f.metrics.ClientDisconnected("websocket")
	}
}

// Emit broadcasts r.  A client that can't take it is dropped.
func (f *LiveFeed) Emit(r Record) {
	var msg, err = json.Marshal(r)
	if err != nil {
		f.logger.Error("WebSocket: marshal record", "err", err)
		return
	}

	f.mu.RLock()
	var conns = make(map[*websocket.Conn]*sync.Mutex, len(f.clients))
	for conn, writeMu := range f.clients {
		conns[conn] = writeMu
	}
	f.mu.RUnlock()

	for conn, writeMu := range conns {
		writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)) //nolint:errcheck
		var werr = conn.WriteMessage(websocket.TextMessage, msg)
		writeMu.Unlock()

		if werr != nil {
			f.logger.Debug("WebSocket: write failed, dropping client", "err", werr)
			f.remove(conn)
		}
	}
}
