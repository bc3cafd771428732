package n2c

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxSendRecvRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := NewMux(clientConn)
	server := NewMux(serverConn)

	inbox := server.Register(ProtocolLocalStateQuery)

	require.NoError(t, client.Send(ProtocolLocalStateQuery, true, []byte("hello")))

	select {
	case payload := <-inbox:
		assert.Equal(t, []byte("hello"), payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
	}
}

func TestMuxAbortClosesDemux(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	client := NewMux(clientConn)
	client.Abort()

	select {
	case <-client.Done():
	default:
		t.Fatal("expected Done() to be closed after Abort")
	}
}
