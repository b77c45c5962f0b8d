package reload

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types understood by the gallery client
const (
	TypeConnected = "connected"
	TypeUpdate    = "update"
	TypeCustom    = "custom"
	TypeError     = "error"
)

// Message is one notification pushed to browsers
type Message struct {
	Type      string     `json:"type"`
	Path      string     `json:"path,omitempty"`  // module id for "update"
	Event     string     `json:"event,omitempty"` // channel name for "custom"
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// ErrorInfo describes a failed regeneration
type ErrorInfo struct {
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
}

// Server manages websocket connections of the gallery client
type Server struct {
	clients    map[*websocket.Conn]*client
	broadcast  chan *Message
	register   chan *client
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger

	listenersMu sync.RWMutex
	listeners   []func()
}

// NewServer creates a reload server and starts its dispatch loop
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		clients:    make(map[*websocket.Conn]*client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				// Development only: accept local pages
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://127.0.0.1")
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go s.run()

	return s
}

// OnConnection registers fn to run each time a client connects
func (s *Server) OnConnection(fn func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Server) run() {
	for {
		select {
		case <-s.done:
			return

		case c := <-s.register:
			s.mutex.Lock()
			s.clients[c.conn] = c
			total := len(s.clients)
			s.mutex.Unlock()
			s.logger.Debug("client connected", zap.String("client", c.id), zap.Int("total", total))

			s.send(c.conn, &Message{Type: TypeConnected, Timestamp: time.Now().Unix()})
			s.notifyListeners()

		case conn := <-s.unregister:
			s.mutex.Lock()
			if c, ok := s.clients[conn]; ok {
				delete(s.clients, conn)
				conn.Close()
				s.logger.Debug("client disconnected", zap.String("client", c.id), zap.Int("total", len(s.clients)))
			}
			s.mutex.Unlock()

		case message := <-s.broadcast:
			s.sendToAll(message)
		}
	}
}

func (s *Server) notifyListeners() {
	s.listenersMu.RLock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

func (s *Server) send(conn *websocket.Conn, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("failed to marshal message", zap.Error(err))
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn("failed to send message", zap.Error(err))
	}
}

// sendToAll writes message to every client and drops the ones that fail
func (s *Server) sendToAll(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("failed to marshal message", zap.Error(err))
		return
	}

	s.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Warn("failed to send message", zap.Error(err))
			failed = append(failed, conn)
		}
	}
	s.mutex.RUnlock()

	if len(failed) > 0 {
		s.mutex.Lock()
		for _, conn := range failed {
			if _, ok := s.clients[conn]; ok {
				conn.Close()
				delete(s.clients, conn)
			}
		}
		s.mutex.Unlock()
	}
}

// HandleWebSocket upgrades the request and registers the client
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}

	select {
	case s.register <- c:
	case <-s.done:
		conn.Close()
		return
	}

	go s.readMessages(conn)
}

// readMessages keeps the connection alive until the client goes away
func (s *Server) readMessages(conn *websocket.Conn) {
	defer func() {
		select {
		case s.unregister <- conn:
		case <-s.done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("websocket error", zap.Error(err))
			}
			return
		}
		// Any client frame counts as a keepalive
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func (s *Server) publish(message *Message) {
	select {
	case s.broadcast <- message:
	case <-s.done:
	}
}

// NotifyUpdate tells clients that the module with the given id changed
func (s *Server) NotifyUpdate(path string) {
	s.publish(&Message{
		Type:      TypeUpdate,
		Path:      path,
		Timestamp: time.Now().Unix(),
	})
}

// Send pushes a named custom event with a payload
func (s *Server) Send(event string, data any) {
	s.publish(&Message{
		Type:      TypeCustom,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// NotifyError reports a failure to regenerate content
func (s *Server) NotifyError(info *ErrorInfo) {
	s.publish(&Message{
		Type:      TypeError,
		Error:     info,
		Timestamp: time.Now().Unix(),
	})
}

// ConnectionCount returns the number of connected clients
func (s *Server) ConnectionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.clients)
}

// Close disconnects all clients and stops the dispatch loop
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mutex.Lock()
		defer s.mutex.Unlock()

		for conn := range s.clients {
			conn.Close()
		}
		s.clients = make(map[*websocket.Conn]*client)
	})
}
