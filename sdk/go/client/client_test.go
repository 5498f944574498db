package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/holoray/holoray/internal/core/ingest"
	"github.com/holoray/holoray/internal/core/input"
	"github.com/holoray/holoray/internal/core/observability/log"
	"github.com/holoray/holoray/internal/gateway"
)

func startGateway(t *testing.T) *gateway.Server {
	t.Helper()
	config := gateway.DefaultConfig()
	config.HTTPAddr = "127.0.0.1:0"
	srv := gateway.NewServer(config, log.Wrap(zap.NewNop(), log.LevelDebug))
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestClientPublishLifecycle(t *testing.T) {
	srv := startGateway(t)

	config := DefaultConfig()
	config.GatewayURL = "ws://" + srv.Addr() + "/ingest"
	config.HeartbeatInterval = 0
	c := New(config)

	require.Error(t, c.PublishHead(ingest.Pose{}), "publish before connect must fail")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, ErrAlreadyConnected, c.Connect(ctx))

	require.NoError(t, c.PublishHead(ingest.Pose{
		Position: [3]float32{0, 1.7, 0},
		Rotation: [4]float32{0, 0, 0, 1},
	}))
	require.NoError(t, c.AttachSource("ctl", input.KindController, input.HandLeft,
		SpatialPointer(ingest.Pose{Position: [3]float32{-0.2, 1, 0}, Rotation: [4]float32{0, 0, 0, 1}})))

	require.Eventually(t, func() bool {
		_, ok := srv.Resolver().MotionControllerRay(input.HandLeft)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	head := srv.Resolver().HeadGazeRay()
	assert.InDelta(t, 1.7, head.Origin.Y, 1e-5)

	require.NoError(t, c.DetachSource("ctl"))
	require.Eventually(t, func() bool {
		_, ok := srv.Resolver().MotionControllerRay(input.HandLeft)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "double close is a no-op")
	assert.Equal(t, ErrNotConnected, c.PublishHead(ingest.Pose{}))
}

// frameRecorder is a bare WebSocket endpoint that records every frame
// type a client sends, for asserting on the wire traffic itself.
type frameRecorder struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	types []ingest.FrameType
}

func (r *frameRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := ingest.Decode(data)
		if err != nil {
			continue
		}
		r.mu.Lock()
		r.types = append(r.types, frame.Type)
		r.mu.Unlock()
	}
}

func (r *frameRecorder) recorded() []ingest.FrameType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ingest.FrameType(nil), r.types...)
}

func TestCloseSendsByeFrame(t *testing.T) {
	rec := &frameRecorder{}
	ts := httptest.NewServer(rec)
	defer ts.Close()

	config := DefaultConfig()
	config.GatewayURL = "ws" + strings.TrimPrefix(ts.URL, "http")
	config.HeartbeatInterval = 0
	c := New(config)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Close())

	require.Eventually(t, func() bool {
		types := rec.recorded()
		return len(types) > 0 && types[len(types)-1] == ingest.FrameBye
	}, 2*time.Second, 10*time.Millisecond, "bye must be the last frame on the wire")

	types := rec.recorded()
	require.NotEmpty(t, types)
	assert.Equal(t, ingest.FrameHello, types[0])
}

func TestSessionDropDetachesSources(t *testing.T) {
	srv := startGateway(t)

	config := DefaultConfig()
	config.GatewayURL = "ws://" + srv.Addr() + "/ingest"
	config.HeartbeatInterval = 0
	c := New(config)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.AttachSource("hand", input.KindHand, input.HandRight,
		SpatialPointer(ingest.Pose{Rotation: [4]float32{0, 0, 0, 1}})))

	require.Eventually(t, func() bool {
		return srv.System().Registry().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())

	require.Eventually(t, func() bool {
		return srv.System().Registry().Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
