package syslog

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// newCollector opens a local UDP socket and returns it with its port.
func newCollector(t *testing.T) (net.PacketConn, int) {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return pc, pc.LocalAddr().(*net.UDPAddr).Port
}

func readPacket(t *testing.T, pc net.PacketConn) string {
	t.Helper()
	buf := make([]byte, 64*1024)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(nil, newTestLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "access", client.config.Name)
	assert.Equal(t, "logspool", client.config.Ident)
	assert.Equal(t, "local0", client.config.Facility)
	assert.Equal(t, "127.0.0.1", client.config.IP)
	assert.Equal(t, 514, client.config.Port)
	assert.NotEmpty(t, client.config.Host)
}

func TestNewClient_OptionsMergePerKey(t *testing.T) {
	client, err := NewClient(map[string]any{
		"name":     "edge",
		"facility": "local3",
		"port":     10514,
		// host, ident, ip left to defaults
	}, newTestLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "edge", client.config.Name)
	assert.Equal(t, "local3", client.config.Facility)
	assert.Equal(t, 10514, client.config.Port)
	assert.Equal(t, "logspool", client.config.Ident)
	assert.Equal(t, "127.0.0.1", client.config.IP)
}

func TestNewClient_UnknownFacility(t *testing.T) {
	_, err := NewClient(map[string]any{"facility": "local9"}, newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "facility")
}

func TestSendBatch(t *testing.T) {
	pc, port := newCollector(t)

	client, err := NewClient(map[string]any{
		"host":  "web1",
		"ident": "node7",
		"port":  port,
	}, newTestLogger())
	require.NoError(t, err)
	defer client.Close()

	lines := []string{
		`1.2.3.4 200/300/100/150/150/700 200 42 "GET /foo"`,
		`5.6.7.8 10/20/30/40/50/140 404 0 "GET /bar"`,
	}
	require.NoError(t, client.SendBatch(lines))

	for _, line := range lines {
		packet := readPacket(t, pc)
		// local0 (16) * 8 + info (6) = 134
		assert.True(t, strings.HasPrefix(packet, "<134>"), "packet %q", packet)
		assert.Contains(t, packet, " web1 node7: "+line)
	}

	stats := client.GetStats()
	assert.Equal(t, uint64(2), stats.TotalSent)
	assert.Equal(t, uint64(0), stats.TotalFailed)
}

func TestSendBatch_Empty(t *testing.T) {
	client, err := NewClient(nil, newTestLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.SendBatch(nil))
	assert.Equal(t, uint64(0), client.GetStats().TotalSent)
}

func TestSendError_Severity(t *testing.T) {
	pc, port := newCollector(t)

	client, err := NewClient(map[string]any{"port": port}, newTestLogger())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.SendError(fmt.Sprintf("%s error %q oops", "1.2.3.4", "GET /x")))

	packet := readPacket(t, pc)
	// local0 (16) * 8 + err (3) = 131
	assert.True(t, strings.HasPrefix(packet, "<131>"), "packet %q", packet)
}

func TestSendAfterClose(t *testing.T) {
	client, err := NewClient(nil, newTestLogger())
	require.NoError(t, err)
	client.Close()

	assert.Error(t, client.SendBatch([]string{"line"}))
	assert.Equal(t, uint64(1), client.GetStats().TotalFailed)
}
