// Package ws is the WebSocket transport of the relay: it upgrades HTTP
// connections, decodes inbound frames into commands for the coordinator and
// writes outbound events back to each socket.
package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	SendBufferSize int
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	ReadLimit      int64
	// AllowedOrigins lists accepted Origin hosts. Empty accepts every origin.
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	return c
}

type Server struct {
	log         *slog.Logger
	config      Config
	coordinator contract.ICoordinator
	metrics     *observability.Metrics
	upgrader    websocket.Upgrader
	decoder     decoder
	tracer      trace.Tracer

	mu      sync.Mutex
	closed  bool
	sockets map[domain.ConnectionID]*websocket.Conn
	wg      sync.WaitGroup
}

func NewServer(log *slog.Logger, config Config, coordinator contract.ICoordinator,
	metrics *observability.Metrics) *Server {
	s := &Server{
		log:         log,
		config:      config.withDefaults(),
		coordinator: coordinator,
		metrics:     metrics,
		decoder:     newDecoder(),
		tracer:      otel.Tracer("chat-relay/transport/ws"),
		sockets:     make(map[domain.ConnectionID]*websocket.Conn),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return lo.Contains(s.config.AllowedOrigins, u.Host)
}

// ServeHTTP upgrades the request and blocks until the connection ends.
// The read loop runs on the handler goroutine, so commands from one connection
// reach the coordinator one at a time.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		s.log.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := domain.NewConnectionID()
	if !s.track(id, socket) {
		_ = socket.Close()
		return
	}
	defer s.untrack(id)

	sink := NewConnectionSink(id, s.config.SendBufferSize, s.metrics, s.log)
	s.metrics.ConnectionsOpened.Inc()
	s.coordinator.Connect(id, sink)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writeLoop(socket, sink)
	}()

	s.readLoop(r.Context(), id, socket)

	s.coordinator.Disconnect(id)
	sink.Close()
	s.metrics.ConnectionsClosed.Inc()
}

func (s *Server) readLoop(ctx context.Context, id domain.ConnectionID, socket *websocket.Conn) {
	defer func() { _ = socket.Close() }()

	socket.SetReadLimit(s.config.ReadLimit)
	_ = socket.SetReadDeadline(time.Now().Add(s.config.PongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(s.config.PongWait))
	})

	for {
		messageType, raw, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Debug("Connection lost", "connection_id", id, "error", err)
			}
			return
		}
		_ = socket.SetReadDeadline(time.Now().Add(s.config.PongWait))

		if messageType != websocket.TextMessage {
			s.metrics.FramesRejected.WithLabelValues("binary").Inc()
			continue
		}
		s.dispatch(ctx, id, raw)
	}
}

// dispatch never fails toward the client: undecodable frames are dropped.
func (s *Server) dispatch(ctx context.Context, id domain.ConnectionID, raw []byte) {
	_, span := s.tracer.Start(ctx, "relay.inbound",
		trace.WithAttributes(attribute.String("relay.connection_id", id.String())))
	defer span.End()

	cmd, err := s.decoder.decode(id, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "frame dropped")
		s.metrics.FramesRejected.WithLabelValues(rejectReason(err)).Inc()
		s.log.Debug("Frame dropped", "connection_id", id, "error", err)
		return
	}

	switch c := cmd.(type) {
	case domain.SetNicknameCommand:
		span.SetAttributes(attribute.String("relay.event", SetNicknameEvent))
		s.coordinator.SetNickname(c)
	case domain.ReconnectNicknameCommand:
		span.SetAttributes(attribute.String("relay.event", ReconnectNicknameEvent))
		s.coordinator.ReconnectNickname(c)
	case domain.PostMessageCommand:
		span.SetAttributes(attribute.String("relay.event", ChatMessageEvent))
		s.coordinator.PostMessage(c)
	}
}

func rejectReason(err error) string {
	if stderrors.Is(err, errors.ErrUnknownEvent) {
		return "unknown_event"
	}
	return "invalid_payload"
}

// writeLoop is the only writer of data frames on the socket.
func (s *Server) writeLoop(socket *websocket.Conn, sink *ConnectionSink) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = socket.Close()
	}()

	for {
		select {
		case frame := <-sink.send:
			_ = socket.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := socket.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug("Write failed", "connection_id", sink.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = socket.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sink.done:
			_ = socket.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.config.WriteTimeout))
			return
		}
	}
}

func (s *Server) track(id domain.ConnectionID, socket *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sockets[id] = socket
	return true
}

func (s *Server) untrack(id domain.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, id)
}

// Shutdown refuses new connections, closes every open socket and waits for the
// write loops to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sockets := lo.Values(s.sockets)
	s.mu.Unlock()

	deadline := time.Now().Add(s.config.WriteTimeout)
	for _, socket := range sockets {
		_ = socket.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = socket.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
