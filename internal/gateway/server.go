// Package gateway runs the mixed-reality input gateway: it ingests pose
// frames from connected devices, maintains the input-source registry and
// serves ray-resolution queries.
package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/holoray/holoray/internal/core/events/bus"
	"github.com/holoray/holoray/internal/core/ingest"
	quicingest "github.com/holoray/holoray/internal/core/ingest/quic"
	wsingest "github.com/holoray/holoray/internal/core/ingest/websocket"
	"github.com/holoray/holoray/internal/core/input"
	"github.com/holoray/holoray/internal/core/input/raycast"
	"github.com/holoray/holoray/internal/core/observability/log"
)

var _ ingest.Handler = (*Server)(nil)

// Server is the input gateway.
type Server struct {
	config    Config
	logger    log.Log
	baseLog   log.Log
	events    bus.EventBus
	system    *input.System
	resolver  *raycast.Resolver

	head headState
	gaze gazeState

	wsIngest   *wsingest.Ingest
	quicIngest *quicingest.Listener
	httpServer *http.Server
	httpAddr   string

	running  int32 // atomic bool
	closed   int32 // atomic bool
	stopChan chan struct{}
	workers  sync.WaitGroup
	eg       errgroup.Group
}

// headState is the active-camera accessor, fed by head frames.
type headState struct {
	mu   sync.RWMutex
	pose input.Pose
	set  bool
}

func (h *headState) HeadPose() input.Pose {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set {
		return input.IdentityPose()
	}
	return h.pose
}

func (h *headState) update(p input.Pose) {
	h.mu.Lock()
	h.pose = p
	h.set = true
	h.mu.Unlock()
}

// gazeState is the eye-gaze provider, fed by gaze frames.
type gazeState struct {
	mu  sync.RWMutex
	ray input.Ray
	ok  bool
}

func (g *gazeState) GazeRay() (input.Ray, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ray, g.ok
}

func (g *gazeState) update(r input.Ray) {
	g.mu.Lock()
	g.ray = r
	g.ok = true
	g.mu.Unlock()
}

// NewServer creates a gateway from config.
func NewServer(config Config, logger log.Log) *Server {
	events := bus.New()
	system := input.NewSystem(events)

	s := &Server{
		config:   config,
		logger:   logger.With(log.String("component", "gateway")),
		baseLog:  logger,
		events:   events,
		system:   system,
		resolver: raycast.New(system, logger),
		stopChan: make(chan struct{}),
	}
	system.SetHeadProvider(&s.head)

	s.wsIngest = wsingest.New(s, s.ingestConfig(""), logger)

	s.logSourceLifecycle()

	return s
}

func (s *Server) ingestConfig(addr string) ingest.Config {
	return ingest.Config{
		Addr:          addr,
		ReadTimeout:   s.config.ReadTimeout,
		WriteTimeout:  s.config.WriteTimeout,
		MaxFrameBytes: s.config.MaxFrameBytes,
		MaxSessions:   s.config.MaxSessions,
	}
}

// System exposes the input system for embedding hosts.
func (s *Server) System() *input.System { return s.system }

// Resolver exposes the ray resolver.
func (s *Server) Resolver() *raycast.Resolver { return s.resolver }

// Events exposes the lifecycle event bus.
func (s *Server) Events() bus.EventBus { return s.events }

// Addr returns the bound HTTP address once the gateway has started.
func (s *Server) Addr() string { return s.httpAddr }

// Start binds the listeners and starts the stale-source sweeper.
func (s *Server) Start(ctx context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.HTTPAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		return err
	}
	s.httpAddr = ln.Addr().String()

	mux := http.NewServeMux()
	mux.Handle("/ingest", s.wsIngest)
	s.registerAPI(mux)
	s.httpServer = &http.Server{
		Handler:      mux,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.eg.Go(func() error {
		if serveErr := s.httpServer.Serve(ln); !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	if s.config.QUIC.Enabled {
		tlsConf, tlsErr := s.quicTLS()
		if tlsErr != nil {
			atomic.StoreInt32(&s.running, 0)
			_ = ln.Close()
			return tlsErr
		}
		s.quicIngest = quicingest.New(s, s.ingestConfig(s.config.QUIC.Addr), tlsConf, s.baseLog)
		if err = s.quicIngest.Start(ctx); err != nil {
			atomic.StoreInt32(&s.running, 0)
			_ = ln.Close()
			return err
		}
	}

	s.workers.Add(1)
	go s.sweeper()

	s.logger.Info("gateway started",
		log.String("http_addr", ln.Addr().String()),
		log.Bool("quic_enabled", s.quicIngest != nil))

	return nil
}

// Stop shuts the listeners down and waits for workers.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("stopping gateway")

	close(s.stopChan)

	if s.httpServer != nil {
		_ = s.httpServer.Shutdown(ctx)
	}
	s.wsIngest.Close()
	if s.quicIngest != nil {
		_ = s.quicIngest.Stop(ctx)
	}

	s.workers.Wait()
	err := s.eg.Wait()

	s.logger.Info("gateway stopped")
	return err
}

// Close stops the gateway and releases all resources.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	if atomic.LoadInt32(&s.running) == 1 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(ctx)
	}
	return nil
}

func (s *Server) quicTLS() (*tls.Config, error) {
	if s.config.QUIC.CertFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(s.config.QUIC.CertFile, s.config.QUIC.KeyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// HandleFrame applies one frame from a device session.
func (s *Server) HandleFrame(_ context.Context, sess ingest.Session, frame *ingest.Frame) error {
	switch frame.Type {
	case ingest.FrameHello:
		s.logger.Info("device hello",
			log.String("session_id", sess.ID),
			log.String("device", frame.Device))
		return nil

	case ingest.FrameHead:
		if frame.Pose == nil {
			return ErrMissingPose
		}
		s.head.update(frame.Pose.ToInput())
		return nil

	case ingest.FrameGaze:
		if frame.Pose == nil {
			return ErrMissingPose
		}
		s.gaze.update(input.RayFromPose(frame.Pose.ToInput()))
		// The provider registers on first gaze data; until then eye-gaze
		// queries report "no provider".
		s.system.SetEyeGazeProvider(&s.gaze)
		return nil

	case ingest.FrameAttach:
		if frame.Source == "" {
			return ErrMissingSourceID
		}
		src := input.NewSource(sess.ID, frame.Kind, frame.Handedness)
		src.ID = s.sourceKey(sess, frame.Source)
		for _, m := range frame.Mappings {
			src.SetMapping(input.MappingUsage(m.Usage), m.Pose.ToInput())
		}
		s.system.Attach(src)
		return nil

	case ingest.FramePose:
		if frame.Source == "" {
			return ErrMissingSourceID
		}
		id := s.sourceKey(sess, frame.Source)
		for _, m := range frame.Mappings {
			if !s.system.UpdateMapping(id, input.MappingUsage(m.Usage), m.Pose.ToInput()) {
				return ErrUnknownSource
			}
		}
		return nil

	case ingest.FrameDetach:
		if frame.Source == "" {
			return ErrMissingSourceID
		}
		if !s.system.Detach(s.sourceKey(sess, frame.Source)) {
			return ErrUnknownSource
		}
		return nil

	case ingest.FrameHeartbeat:
		for _, src := range s.system.Registry().Snapshot() {
			if src.SessionID == sess.ID {
				s.system.Registry().Touch(src.ID)
			}
		}
		return nil

	default:
		s.logger.Warn("unknown frame type",
			log.String("session_id", sess.ID),
			log.String("frame_type", string(frame.Type)))
		return nil
	}
}

// SessionClosed detaches everything the session attached.
func (s *Server) SessionClosed(sess ingest.Session) {
	removed := s.system.DetachSession(sess.ID)
	if len(removed) > 0 {
		s.logger.Info("detached sources of closed session",
			log.String("session_id", sess.ID),
			log.Int("sources", len(removed)))
	}
}

// sourceKey namespaces device-chosen source IDs by session so two
// devices using the same local name never collide.
func (s *Server) sourceKey(sess ingest.Session, source string) string {
	return sess.ID + ":" + source
}

// sweeper periodically detaches sources that stopped reporting.
func (s *Server) sweeper() {
	defer s.workers.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := s.system.SweepStale(s.config.SourceTTL)
			if len(removed) > 0 {
				s.logger.Info("swept stale sources", log.Int("sources", len(removed)))
			}
		case <-s.stopChan:
			return
		}
	}
}

// logSourceLifecycle subscribes debug logging to the lifecycle events.
func (s *Server) logSourceLifecycle() {
	for _, typ := range []string{bus.EventSourceAttached, bus.EventSourceDetached} {
		typ := typ
		_, _ = s.events.Subscribe(typ, func(e bus.Event) error {
			s.logger.Debug(typ, log.String("source_id", e.Source()))
			return nil
		})
	}
}
