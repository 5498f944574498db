package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds gateway configuration.
type Config struct {
	// HTTPAddr serves the WebSocket ingest endpoint and the query API.
	HTTPAddr string `json:"http_addr" yaml:"http_addr"`

	// QUIC ingest settings.
	QUIC QUICConfig `json:"quic" yaml:"quic"`

	// Session and frame limits.
	MaxSessions   int   `json:"max_sessions" yaml:"max_sessions"`
	MaxFrameBytes int64 `json:"max_frame_bytes" yaml:"max_frame_bytes"`

	// Timeouts. Durations are nanoseconds when set from a file; zero
	// values take the defaults.
	ReadTimeout  time.Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`

	// Stale-source handling: sources not refreshed within SourceTTL are
	// detached by the sweeper.
	SourceTTL     time.Duration `json:"source_ttl,omitempty" yaml:"source_ttl,omitempty"`
	SweepInterval time.Duration `json:"sweep_interval,omitempty" yaml:"sweep_interval,omitempty"`

	// Logging.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// QUICConfig configures the QUIC ingest listener.
type QUICConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
	// CertFile/KeyFile configure TLS; when empty a self-signed
	// development certificate is generated.
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:      "127.0.0.1:8420",
		QUIC:          QUICConfig{Enabled: false, Addr: "127.0.0.1:8421"},
		MaxSessions:   256,
		MaxFrameBytes: 64 * 1024,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  10 * time.Second,
		SourceTTL:     15 * time.Second,
		SweepInterval: 5 * time.Second,
		LogLevel:      "info",
	}
}

// LoadYAML reads a config from a YAML reader, over the defaults.
func LoadYAML(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadJSON reads a config from a JSON reader, over the defaults.
func LoadJSON(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadFile reads a config file, dispatching on the extension. An empty
// path returns the defaults.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()

	if strings.HasSuffix(path, ".json") {
		return LoadJSON(f)
	}
	return LoadYAML(f)
}

// Validate checks the configuration for inconsistencies.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if c.QUIC.Enabled && c.QUIC.Addr == "" {
		return fmt.Errorf("quic.addr is required when quic is enabled")
	}
	if (c.QUIC.CertFile == "") != (c.QUIC.KeyFile == "") {
		return fmt.Errorf("quic.cert_file and quic.key_file must be set together")
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must not be negative")
	}
	if c.SourceTTL <= 0 {
		return fmt.Errorf("source_ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	return nil
}
