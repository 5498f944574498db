// Package client is the device-side SDK for feeding pose frames to a
// HoloRay gateway over WebSocket.
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/holoray/holoray/internal/core/ingest"
	"github.com/holoray/holoray/internal/core/input"
	"github.com/holoray/holoray/internal/core/observability/log"
)

// Config holds configuration for the client.
type Config struct {
	// GatewayURL is the ingest endpoint, e.g. ws://127.0.0.1:8420/ingest.
	GatewayURL string
	// Device is a free-form device description sent in the hello frame.
	Device string

	ConnectTimeout    time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration

	LogLevel log.Level
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		GatewayURL:        "ws://127.0.0.1:8420/ingest",
		Device:            "holoray-sdk",
		ConnectTimeout:    10 * time.Second,
		WriteTimeout:      5 * time.Second,
		HeartbeatInterval: 5 * time.Second,
		LogLevel:          log.LevelInfo,
	}
}

// Client publishes device poses to a gateway.
type Client struct {
	conn   *websocket.Conn
	config Config
	logger log.Log

	connected int32 // atomic bool
	closed    int32 // atomic bool
	done      chan struct{}

	writeMu sync.Mutex
	workers sync.WaitGroup
}

// New creates a client. Connect must be called before publishing.
func New(config Config) *Client {
	return &Client{
		config: config,
		logger: log.New(config.LogLevel).With(log.String("component", "sdk_client")),
		done:   make(chan struct{}),
	}
}

// Connect dials the gateway and sends the hello frame.
func (c *Client) Connect(ctx context.Context) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}
	if !atomic.CompareAndSwapInt32(&c.connected, 0, 1) {
		return ErrAlreadyConnected
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.ConnectTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.config.GatewayURL, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		atomic.StoreInt32(&c.connected, 0)
		return err
	}
	c.conn = conn

	if err = c.send(&ingest.Frame{Type: ingest.FrameHello, Device: c.config.Device}); err != nil {
		_ = conn.Close()
		atomic.StoreInt32(&c.connected, 0)
		return err
	}

	if c.config.HeartbeatInterval > 0 {
		c.workers.Add(1)
		go c.heartbeat()
	}

	c.logger.Info("connected to gateway", log.String("url", c.config.GatewayURL))
	return nil
}

// Close sends the bye frame and tears the connection down.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if atomic.LoadInt32(&c.connected) == 0 {
		return nil
	}
	// The bye frame has to go out while the connection still counts as
	// live; send rejects frames once connected drops.
	if err := c.send(&ingest.Frame{Type: ingest.FrameBye}); err != nil {
		c.logger.Debug("bye frame not sent", log.Error(err))
	}
	atomic.StoreInt32(&c.connected, 0)
	close(c.done)
	err := c.conn.Close()
	c.workers.Wait()
	return err
}

// PublishHead reports the headset pose, which also drives the gateway's
// active camera.
func (c *Client) PublishHead(pose ingest.Pose) error {
	return c.send(&ingest.Frame{Type: ingest.FrameHead, Pose: &pose})
}

// PublishGaze reports the eye-gaze pose. The first gaze frame registers
// the device as the gateway's eye-gaze provider.
func (c *Client) PublishGaze(pose ingest.Pose) error {
	return c.send(&ingest.Frame{Type: ingest.FrameGaze, Pose: &pose})
}

// AttachSource announces an input source, optionally with its initial
// interaction mappings.
func (c *Client) AttachSource(source string, kind input.SourceKind, hand input.Handedness, mappings ...ingest.Mapping) error {
	return c.send(&ingest.Frame{
		Type:       ingest.FrameAttach,
		Source:     source,
		Kind:       kind,
		Handedness: hand,
		Mappings:   mappings,
	})
}

// PublishPose refreshes interaction mappings of an attached source.
func (c *Client) PublishPose(source string, mappings ...ingest.Mapping) error {
	return c.send(&ingest.Frame{
		Type:     ingest.FramePose,
		Source:   source,
		Mappings: mappings,
	})
}

// DetachSource withdraws a previously attached source.
func (c *Client) DetachSource(source string) error {
	return c.send(&ingest.Frame{Type: ingest.FrameDetach, Source: source})
}

// SpatialPointer is a convenience constructor for the mapping the ray
// resolver reads.
func SpatialPointer(pose ingest.Pose) ingest.Mapping {
	return ingest.Mapping{Usage: string(input.UsageSpatialPointer), Pose: pose}
}

func (c *Client) send(frame *ingest.Frame) error {
	if atomic.LoadInt32(&c.connected) == 0 {
		return ErrNotConnected
	}
	data, err := ingest.Encode(frame)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) heartbeat() {
	defer c.workers.Done()

	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.send(&ingest.Frame{Type: ingest.FrameHeartbeat}); err != nil {
				c.logger.Debug("heartbeat failed", log.Error(err))
			}
		case <-c.done:
			return
		}
	}
}
