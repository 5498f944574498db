// Package quic carries pose frames over QUIC streams, one line-delimited
// JSON frame per line.
package quic

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/holoray/holoray/internal/core/ingest"
	"github.com/holoray/holoray/internal/core/observability/log"
)

const alpnProtocol = "holoray-quic"

var _ ingest.Listener = (*Listener)(nil)

// Listener is the QUIC ingest transport.
type Listener struct {
	handler ingest.Handler
	config  ingest.Config
	tlsConf *tls.Config
	logger  log.Log

	listener *quic.Listener
	sessions sync.Map // map[string]*quic.Conn
	count    int64    // atomic
	running  int32    // atomic bool
	wg       sync.WaitGroup
}

// New creates a QUIC listener. A nil tlsConf gets a self-signed
// development certificate.
func New(handler ingest.Handler, config ingest.Config, tlsConf *tls.Config, logger log.Log) *Listener {
	return &Listener{
		handler: handler,
		config:  config,
		tlsConf: tlsConf,
		logger:  logger.With(log.String("component", "quic_ingest")),
	}
}

// Addr returns the listen address.
func (l *Listener) Addr() string {
	if l.listener != nil {
		return l.listener.Addr().String()
	}
	return l.config.Addr
}

// Start begins accepting device connections.
func (l *Listener) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.running, 0, 1) {
		return ingest.ErrListenerRunning
	}

	tlsConf := l.tlsConf
	if tlsConf == nil {
		var err error
		tlsConf, err = GenerateSelfSignedTLS()
		if err != nil {
			atomic.StoreInt32(&l.running, 0)
			return err
		}
	}
	if len(tlsConf.NextProtos) == 0 {
		tlsConf = tlsConf.Clone()
		tlsConf.NextProtos = []string{alpnProtocol}
	}

	quicConf := &quic.Config{
		MaxIdleTimeout:     l.config.ReadTimeout,
		MaxIncomingStreams: 8,
	}

	listener, err := quic.ListenAddr(l.config.Addr, tlsConf, quicConf)
	if err != nil {
		atomic.StoreInt32(&l.running, 0)
		return err
	}
	l.listener = listener

	l.logger.Info("quic ingest listening", log.String("addr", listener.Addr().String()))

	l.wg.Add(1)
	go l.acceptLoop(ctx)

	return nil
}

// Stop closes the listener and every open session.
func (l *Listener) Stop(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.running, 1, 0) {
		return ingest.ErrListenerNotRunning
	}
	if l.listener != nil {
		_ = l.listener.Close()
	}
	l.sessions.Range(func(_, value any) bool {
		if conn, ok := value.(*quic.Conn); ok {
			_ = conn.CloseWithError(0, "shutting down")
		}
		return true
	})
	l.wg.Wait()
	l.logger.Info("quic ingest stopped")
	return nil
}

func (l *Listener) acceptLoop(ctx context.Context) {
	defer l.wg.Done()

	for atomic.LoadInt32(&l.running) == 1 {
		conn, err := l.listener.Accept(ctx)
		if err != nil {
			if atomic.LoadInt32(&l.running) == 1 && ctx.Err() == nil {
				l.logger.Error("failed to accept connection", log.Error(err))
			}
			return
		}

		if l.config.MaxSessions > 0 && int(atomic.LoadInt64(&l.count)) >= l.config.MaxSessions {
			l.logger.Warn("rejecting connection",
				log.String("remote_addr", conn.RemoteAddr().String()),
				log.Error(ingest.ErrSessionLimit))
			_ = conn.CloseWithError(1, ingest.ErrSessionLimit.Error())
			continue
		}

		sess := ingest.Session{
			ID:         uuid.NewString(),
			RemoteAddr: conn.RemoteAddr().String(),
			Transport:  "quic",
			OpenedAt:   time.Now(),
		}
		l.sessions.Store(sess.ID, conn)
		atomic.AddInt64(&l.count, 1)

		l.logger.Info("device session opened",
			log.String("session_id", sess.ID),
			log.String("remote_addr", sess.RemoteAddr),
			log.Int64("total_sessions", atomic.LoadInt64(&l.count)))

		l.wg.Add(1)
		go l.handleConn(ctx, sess, conn)
	}
}

func (l *Listener) handleConn(ctx context.Context, sess ingest.Session, conn *quic.Conn) {
	defer func() {
		l.sessions.Delete(sess.ID)
		atomic.AddInt64(&l.count, -1)
		_ = conn.CloseWithError(0, "")
		l.handler.SessionClosed(sess)
		l.logger.Info("device session closed",
			log.String("session_id", sess.ID),
			log.Int64("total_sessions", atomic.LoadInt64(&l.count)))
		l.wg.Done()
	}()

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		l.readStream(ctx, sess, stream)
	}
}

func (l *Listener) readStream(ctx context.Context, sess ingest.Session, stream *quic.Stream) {
	defer func() { _ = stream.Close() }()

	sessLogger := l.logger.With(log.String("session_id", sess.ID))

	scanner := bufio.NewScanner(stream)
	if l.config.MaxFrameBytes > 0 {
		scanner.Buffer(make([]byte, 4096), int(l.config.MaxFrameBytes))
	}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frame, err := ingest.Decode(line)
		if err != nil {
			sessLogger.Warn("dropping malformed frame", log.Error(err))
			continue
		}
		if frame.Type == ingest.FrameBye {
			return
		}
		if err = l.handler.HandleFrame(ctx, sess, frame); err != nil {
			sessLogger.Warn("frame rejected",
				log.String("frame_type", string(frame.Type)),
				log.Error(err))
		}
	}
}

// GenerateSelfSignedTLS generates a self-signed TLS certificate for
// development deployments without provisioned certificates.
func GenerateSelfSignedTLS() (*tls.Config, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"HoloRay"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, err
	}

	cert := tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  privateKey,
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{alpnProtocol},
		MinVersion:   tls.VersionTLS13,
	}, nil
}
