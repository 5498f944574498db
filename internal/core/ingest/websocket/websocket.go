// Package websocket carries pose frames over a WebSocket upgrade
// endpoint.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/holoray/holoray/internal/core/ingest"
	"github.com/holoray/holoray/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Ingest is the WebSocket ingest endpoint. It implements http.Handler;
// the gateway mounts it on its HTTP mux.
type Ingest struct {
	handler ingest.Handler
	config  ingest.Config
	logger  log.Log

	sessions     sync.Map // map[string]*session
	sessionCount int64    // atomic
	closed       int32    // atomic bool
}

type session struct {
	info   ingest.Session
	conn   *websocket.Conn
	active int32 // atomic bool
}

// New creates the ingest endpoint.
func New(handler ingest.Handler, config ingest.Config, logger log.Log) *Ingest {
	return &Ingest{
		handler: handler,
		config:  config,
		logger:  logger.With(log.String("component", "ws_ingest")),
	}
}

// SessionCount returns the number of open device sessions.
func (i *Ingest) SessionCount() int64 {
	return atomic.LoadInt64(&i.sessionCount)
}

// Close terminates all open sessions. New upgrades are rejected.
func (i *Ingest) Close() {
	if !atomic.CompareAndSwapInt32(&i.closed, 0, 1) {
		return
	}
	i.sessions.Range(func(_, value any) bool {
		if s, ok := value.(*session); ok {
			atomic.StoreInt32(&s.active, 0)
			_ = s.conn.Close()
		}
		return true
	})
}

// ServeHTTP upgrades the connection and runs the frame read loop.
func (i *Ingest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&i.closed) == 1 {
		http.Error(w, "ingest closed", http.StatusServiceUnavailable)
		return
	}
	if i.config.MaxSessions > 0 && int(atomic.LoadInt64(&i.sessionCount)) >= i.config.MaxSessions {
		i.logger.Warn("rejecting upgrade",
			log.String("remote_addr", r.RemoteAddr),
			log.Error(ingest.ErrSessionLimit))
		http.Error(w, ingest.ErrSessionLimit.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		i.logger.Error("failed to upgrade connection", log.Error(err))
		return
	}
	if i.config.MaxFrameBytes > 0 {
		conn.SetReadLimit(i.config.MaxFrameBytes)
	}

	s := &session{
		info: ingest.Session{
			ID:         uuid.NewString(),
			RemoteAddr: conn.RemoteAddr().String(),
			Transport:  "websocket",
			OpenedAt:   time.Now(),
		},
		conn:   conn,
		active: 1,
	}
	i.sessions.Store(s.info.ID, s)
	atomic.AddInt64(&i.sessionCount, 1)

	i.logger.Info("device session opened",
		log.String("session_id", s.info.ID),
		log.String("remote_addr", s.info.RemoteAddr),
		log.Int64("total_sessions", atomic.LoadInt64(&i.sessionCount)))

	// The connection is hijacked; the read loop runs in the handler
	// goroutine until the session ends.
	i.readLoop(r.Context(), s)
}

func (i *Ingest) readLoop(ctx context.Context, s *session) {
	defer func() {
		i.sessions.Delete(s.info.ID)
		atomic.AddInt64(&i.sessionCount, -1)
		_ = s.conn.Close()
		i.handler.SessionClosed(s.info)
		i.logger.Info("device session closed",
			log.String("session_id", s.info.ID),
			log.Int64("total_sessions", atomic.LoadInt64(&i.sessionCount)))
	}()

	sessLogger := i.logger.With(log.String("session_id", s.info.ID))

	for atomic.LoadInt32(&s.active) == 1 {
		if i.config.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(i.config.ReadTimeout))
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if atomic.LoadInt32(&s.active) == 1 && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sessLogger.Debug("read failed", log.Error(err))
			}
			return
		}

		frame, err := ingest.Decode(data)
		if err != nil {
			sessLogger.Warn("dropping malformed frame", log.Error(err))
			continue
		}
		if frame.Type == ingest.FrameBye {
			return
		}
		if err = i.handler.HandleFrame(ctx, s.info, frame); err != nil {
			sessLogger.Warn("frame rejected",
				log.String("frame_type", string(frame.Type)),
				log.Error(err))
		}
	}
}
