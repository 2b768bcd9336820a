package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zfogg/ascii-chat/wire"
)

func TestTCPRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	st := NewTCP(server)
	ct := NewTCP(client)
	require.False(t, st.ProvidesEncryption())

	p := wire.NewPacket(wire.TypePing, 1, nil)
	errc := make(chan error, 1)
	go func() { errc <- ct.WritePacket(p) }()

	got, err := st.ReadPacket()
	require.NoError(t, err)
	require.NoError(t, <-errc)
	require.Equal(t, wire.TypePing, got.Header.Type)
}
