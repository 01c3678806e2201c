package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

type Options struct {
	PingInterval      time.Duration
	WriteTimeout      time.Duration
	MaxMessageBytes   int64
	MessagesPerSecond float64
	Burst             int
	SendQueueSize     int
	AllowedOrigins    []string
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 << 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 64
	}
	return o
}

// Server supervises WebSocket connections: upgrade, register gate, heartbeat
// and teardown.
type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	registry Registry
	router   *Router
	journal  Journal
	opts     Options
}

func NewServer(hub *Hub, registry Registry, router *Router, journal Journal, opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{
		hub:      hub,
		registry: registry,
		router:   router,
		journal:  journal,
		opts:     opts,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return lo.Contains(s.opts.AllowedOrigins, "*") || lo.Contains(s.opts.AllowedOrigins, origin)
}

// HandleWS serves one client connection until it closes.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newWsConn(conn, s.opts.SendQueueSize)
	s.hub.Add(c)
	slog.Debug("ws connection opened", "remote", c.remote)

	ctx, cancel := context.WithCancel(r.Context())
	defer s.cleanup(c, cancel)

	go s.writeLoop(ctx, c)
	s.readLoop(c)
}

func (s *Server) readLoop(c *wsConn) {
	sess := &Session{Conn: c, Remote: c.remote}

	var limiter *rate.Limiter
	if s.opts.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	c.conn.SetReadLimit(s.opts.MaxMessageBytes)
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		if sess.registered() {
			s.registry.Touch(sess.ParticipantID)
		}
		return nil
	})

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read failed", "participant", sess.ParticipantID, "remote", c.remote, "err", err)
			}
			return
		}

		if !limiter.Allow() {
			slog.Warn("ws rate limit exceeded, frame dropped", "participant", sess.ParticipantID, "remote", c.remote)
			continue
		}

		if typ != websocket.TextMessage {
			data = nil
		}
		if err := s.router.Route(sess, data); err != nil {
			if errors.Is(err, domain.ErrProtocol) {
				slog.Info("ws protocol error, closing", "remote", c.remote, "err", err)
				c.closeWith(websocket.CloseProtocolError, "first frame must be register", reasonProtocolError, s.opts.WriteTimeout)
				return
			}
			slog.Warn("ws route failed", "participant", sess.ParticipantID, "err", err)
		}
	}
}

// writeLoop drains the outbound queue and runs the heartbeat. A missed pong
// closes the socket, which ends readLoop and runs cleanup.
func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("ws write failed", "remote", c.remote, "err", err)
				_ = c.Close(reasonWriteFailed)
				return
			}
		case <-ticker.C:
			if !c.alive.Swap(false) {
				slog.Info("ws heartbeat timeout, closing", "remote", c.remote)
				_ = c.Close(reasonHeartbeat)
				return
			}
			deadline := time.Now().Add(s.opts.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				slog.Debug("ws ping failed", "remote", c.remote, "err", err)
				_ = c.Close(reasonWriteFailed)
				return
			}
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) cleanup(c *wsConn, cancel context.CancelFunc) {
	c.cleanupOnce.Do(func() {
		cancel()
		s.hub.Remove(c)
		_ = c.Close(reasonClosed)

		id, ok := s.registry.FindByConn(c)
		if !ok {
			slog.Debug("ws connection closed", "remote", c.remote, "reason", c.closeReason())
			return
		}
		p, _ := s.registry.Find(id)
		if !s.registry.Remove(id) {
			return
		}
		slog.Info("participant left", "participant", id, "nickname", p.Nickname, "reason", c.closeReason())

		s.hub.Broadcast()
		if s.journal != nil {
			s.journal.Left(p, c.closeReason())
		}
	})
}

// Shutdown closes every open connection with a going-away frame and waits
// until their cleanup has run or ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll(s.opts.WriteTimeout)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.hub.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
