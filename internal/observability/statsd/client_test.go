package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"  snowdash.http  ", "snowdash.http"},
		{"..foo..", "foo"},
		{".", ""},
		{"", ""},
		{"servicenow/request duration", "servicenow_request_duration"},
		{"auth.signin:bad|name", "auth.signin_bad_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanName(tt.in), "cleanName(%q)", tt.in)
	}
}

func TestCleanTags(t *testing.T) {
	t.Parallel()

	got := cleanTags(map[string]string{
		" table ": " incident ",
		"":        "ignored",
		"query":   "active=true,priority=1|x",
	})
	assert.Equal(t, map[string]string{"table": "incident", "query": "active=true_priority=1_x"}, got)
	assert.Nil(t, cleanTags(nil))
}

func TestClientLine(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "snowdash", globalTags: cleanTags(map[string]string{"env": "prod", "service": "web"})}

	assert.Equal(t,
		"snowdash.servicenow.request:1|c|#env:stage,result:success,service:web",
		c.line("servicenow.request", "1", "c", map[string]string{"env": "stage", "result": " success "}))
	assert.Equal(t, "snowdash.up:1|g|#env:prod,service:web", c.line("up", "1", "g", nil))
	assert.Empty(t, c.line("  ", "1", "c", nil))

	bare := &Client{}
	assert.Equal(t, "auth.signin:1|c", bare.line("auth.signin", "1", "c", nil))
	assert.Equal(t, "auth.signin:1|c|#mode:oauth", bare.line("auth.signin", "1", "c", map[string]string{"mode": "oauth"}))
	assert.Nil(t, bare.globalTags, "per-call tags must not leak into the shared map")
}

func TestClientWritesDatagrams(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String(), Prefix: "snowdash"})
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.Enabled())

	client.Timing("servicenow.request.duration", 1500*time.Microsecond, map[string]string{"table": "incident"})

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "snowdash.servicenow.request.duration:1.5|ms|#table:incident", string(buf[:n]))
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	assert.True(t, client.Enabled())
	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())
	require.NoError(t, client.Close(), "Close is idempotent")

	// Writes after Close are dropped without blocking on the pipe.
	client.Count("dropped", 1, nil)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	assert.NoError(t, nilClient.Close())
	nilClient.Gauge("noop", 1, nil)
}

func TestNewClientDisabled(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{{Enabled: true, Address: "   "}, {Enabled: false, Address: "127.0.0.1:8125"}} {
		client, err := NewClient(cfg)
		require.NoError(t, err)
		assert.False(t, client.Enabled())
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "statsd dial"), err.Error())
}

func TestSplitAddress(t *testing.T) {
	t.Parallel()

	network, target := splitAddress("unix:///var/run/datadog/dsd.socket")
	assert.Equal(t, "unixgram", network)
	assert.Equal(t, "/var/run/datadog/dsd.socket", target)

	network, target = splitAddress("127.0.0.1:8125")
	assert.Equal(t, "udp", network)
	assert.Equal(t, "127.0.0.1:8125", target)
}
