// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceshield/internal/transport"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSenderSendsJSONDatagram(t *testing.T) {
	rx := listen(t)
	s, err := NewSender(rx.LocalAddr().String())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send(map[string]any{"type": "monitor", "seq": 7}))

	buf := make([]byte, 1024)
	require.NoError(t, rx.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := rx.ReadFromUDP(buf)
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(buf[:n], &msg))
	assert.Equal(t, "monitor", msg["type"])
	assert.Equal(t, 7.0, msg["seq"])
}

func TestSenderErrors(t *testing.T) {
	_, err := NewSender("not-an-address")
	assert.Error(t, err)

	rx := listen(t)
	s, err := NewSender(rx.LocalAddr().String())
	require.NoError(t, err)

	assert.Error(t, s.Send(make(chan int)), "channels cannot be encoded")
	assert.ErrorIs(t, s.Send(strings.Repeat("x", MaxDatagram)), ErrTooLarge)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send("late"), transport.ErrClosed)
}
