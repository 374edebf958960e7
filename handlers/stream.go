package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/events"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamBufferSize = 32
)

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Stream pushes ledger events to connected WebSocket clients. Slow clients
// whose buffer is full are dropped.
type Stream struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	upgrader websocket.Upgrader
	clients  map[*streamClient]struct{}
	closed   bool
}

func NewStream() *Stream {
	return &Stream{
		clients: make(map[*streamClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Notify implements events.Notifier.
func (s *Stream) Notify(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Failed to encode stream event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			log.Debug("Dropping slow stream client")
			s.removeLocked(c)
		}
	}
}

func (s *Stream) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects all clients and waits for their goroutines to exit.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	for c := range s.clients {
		s.removeLocked(c)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Stream) Connect() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			// Upgrade has already written the error response
			log.WithFields(log.Fields{"error": err}).Debug("Stream upgrade failed")
			return
		}

		c := &streamClient{conn: conn, send: make(chan []byte, streamBufferSize)}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.clients[c] = struct{}{}
		s.wg.Add(2)
		s.mu.Unlock()

		go s.writePump(c)
		go s.readPump(c)
	})
}

func (s *Stream) removeLocked(c *streamClient) {
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// readPump discards incoming messages; it exists to process control frames
// and to notice when the client goes away.
func (s *Stream) readPump(c *streamClient) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.removeLocked(c)
		s.mu.Unlock()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(streamPongWait)) // nolint
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Stream) writePump(c *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		s.wg.Done()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait)) // nolint
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) // nolint
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait)) // nolint
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
