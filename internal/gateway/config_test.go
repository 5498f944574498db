package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLOverDefaults(t *testing.T) {
	in := `
http_addr: "0.0.0.0:9000"
max_sessions: 8
log_level: debug
quic:
  enabled: true
  addr: "0.0.0.0:9001"
`
	c, err := LoadYAML(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", c.HTTPAddr)
	assert.Equal(t, 8, c.MaxSessions)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.QUIC.Enabled)

	// Unset fields keep the defaults.
	def := DefaultConfig()
	assert.Equal(t, def.SourceTTL, c.SourceTTL)
	assert.Equal(t, def.MaxFrameBytes, c.MaxFrameBytes)
}

func TestLoadJSON(t *testing.T) {
	in := `{"http_addr": "127.0.0.1:7000", "log_level": "warn"}`
	c, err := LoadJSON(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", c.HTTPAddr)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestValidateRejectsInconsistentConfig(t *testing.T) {
	c := DefaultConfig()
	c.HTTPAddr = ""
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.QUIC.Enabled = true
	c.QUIC.Addr = ""
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.QUIC.CertFile = "cert.pem"
	assert.Error(t, c.Validate(), "cert without key must be rejected")

	c = DefaultConfig()
	c.SourceTTL = 0
	assert.Error(t, c.Validate())
}

func TestLoadFileEmptyPathGivesDefaults(t *testing.T) {
	c, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}
