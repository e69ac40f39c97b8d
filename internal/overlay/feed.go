// Package overlay publishes the current combo list to display
// frontends: a local WebSocket feed for a rendering process and an
// optional console renderer for terminal use.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"keyviz/internal/combo"
)

// FrameItem is one visible entry with its age at frame time, so the
// renderer can fade entries without sharing a clock with us.
type FrameItem struct {
	Text  string `json:"text"`
	AgeMs int64  `json:"age_ms"`
}

// Hints carry the placement settings the renderer needs.
type Hints struct {
	Position string `json:"position"`
	Margin   int    `json:"margin"`
	CustomX  int    `json:"custom_x"`
	CustomY  int    `json:"custom_y"`
	Drag     bool   `json:"drag"`
}

// Frame is one full snapshot of the overlay state. Every frame is
// self-contained; a renderer that misses frames loses nothing but
// smoothness.
type Frame struct {
	Items  []FrameItem `json:"items"`
	Paused bool        `json:"paused"`
	Hints  Hints       `json:"hints"`
}

// BuildFrame converts the engine's items into a frame.
func BuildFrame(items []combo.Item, paused bool, hints Hints, now time.Time) Frame {
	f := Frame{Items: make([]FrameItem, 0, len(items)), Paused: paused, Hints: hints}
	for _, it := range items {
		f.Items = append(f.Items, FrameItem{Text: it.Text, AgeMs: now.Sub(it.At).Milliseconds()})
	}
	return f
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Loopback-only server; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedServer broadcasts frames to connected renderer clients over
// WebSocket on the loopback interface.
type FeedServer struct {
	log zerolog.Logger

	clients    map[*feedClient]bool
	clientsMu  sync.RWMutex
	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan []byte
	shutdown   chan struct{}

	lastFrameMu sync.Mutex
	lastFrame   []byte

	srv *http.Server
}

type feedClient struct {
	feed *FeedServer
	conn *websocket.Conn
	send chan []byte
}

func NewFeedServer(log zerolog.Logger) *FeedServer {
	return &FeedServer{
		log:        log.With().Str("component", "feed").Logger(),
		clients:    make(map[*feedClient]bool),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		broadcast:  make(chan []byte, 16),
		shutdown:   make(chan struct{}),
	}
}

// Start binds the feed to 127.0.0.1:port and serves /ws and /healthz.
func (f *FeedServer) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind feed on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	f.srv = &http.Server{Handler: mux}

	go f.run()
	go func() {
		if err := f.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			f.log.Error().Err(err).Msg("feed server stopped")
		}
	}()

	f.log.Info().Str("addr", addr).Msg("overlay feed listening")
	return nil
}

// Broadcast queues a frame for all connected clients. It never blocks
// the caller; under pressure the oldest queued frame is replaced, which
// is fine because frames are snapshots.
func (f *FeedServer) Broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		f.log.Error().Err(err).Msg("could not marshal frame")
		return
	}

	f.lastFrameMu.Lock()
	f.lastFrame = data
	f.lastFrameMu.Unlock()

	for {
		select {
		case f.broadcast <- data:
			return
		default:
			select {
			case <-f.broadcast:
			default:
			}
		}
	}
}

// Close shuts the feed down and disconnects all clients.
func (f *FeedServer) Close() error {
	close(f.shutdown)
	if f.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return f.srv.Shutdown(ctx)
}

func (f *FeedServer) run() {
	for {
		select {
		case client := <-f.register:
			f.clientsMu.Lock()
			f.clients[client] = true
			n := len(f.clients)
			f.clientsMu.Unlock()
			f.log.Info().Int("clients", n).Msg("renderer connected")

			// Replay the latest frame so a freshly attached renderer
			// shows current state instead of a blank overlay.
			f.lastFrameMu.Lock()
			last := f.lastFrame
			f.lastFrameMu.Unlock()
			if last != nil {
				select {
				case client.send <- last:
				default:
				}
			}

		case client := <-f.unregister:
			f.clientsMu.Lock()
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
			}
			n := len(f.clients)
			f.clientsMu.Unlock()
			f.log.Info().Int("clients", n).Msg("renderer disconnected")

		case data := <-f.broadcast:
			f.broadcastFrame(data)

		case <-f.shutdown:
			return
		}
	}
}

func (f *FeedServer) broadcastFrame(data []byte) {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	for client := range f.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(f.clients, client)
		}
	}
}

func (f *FeedServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &feedClient{feed: f, conn: conn, send: make(chan []byte, 16)}
	f.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump discards anything the client sends; the feed is one-way.
// It exists to notice disconnects and answer pings.
func (c *feedClient) readPump() {
	defer func() {
		c.feed.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
