package pool

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockfrost/node-gateway/internal/n2c"
)

// fakeNode accepts one connection at a time on a Unix socket and answers just
// enough of the handshake + state-query protocol for Ping to succeed
// repeatedly, exercising the pool's create/recycle lifecycle end to end
// without a real cardano-node.
func fakeNode(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "node.socket")

	l, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go serveFakeNode(conn)
		}
	}()

	return sockPath
}

func serveFakeNode(conn net.Conn) {
	defer conn.Close()
	mux := n2c.NewMux(conn)
	handshakeInbox := mux.Register(n2c.ProtocolHandshake)
	queryInbox := mux.Register(n2c.ProtocolLocalStateQuery)

	select {
	case <-handshakeInbox:
	case <-mux.Done():
		return
	}
	accept, _ := cbor.Marshal([]any{1, 11})
	if mux.Send(n2c.ProtocolHandshake, false, accept) != nil {
		return
	}

	for {
		select {
		case msg := <-queryInbox:
			var frame []any
			if cbor.Unmarshal(msg, &frame) != nil || len(frame) == 0 {
				return
			}
			tag, _ := frame[0].(uint64)
			var reply []byte
			switch tag {
			case 0: // acquire
				reply, _ = cbor.Marshal([]any{1})
			case 5: // release
				continue
			default:
				return
			}
			if mux.Send(n2c.ProtocolLocalStateQuery, false, reply) != nil {
				return
			}
		case <-mux.Done():
			return
		}
	}
}

type countingGauge struct {
	inc, dec int
}

func (g *countingGauge) Inc() { g.inc++ }
func (g *countingGauge) Dec() { g.dec++ }

func TestPoolGetAndReleaseReusesConnection(t *testing.T) {
	sockPath := fakeNode(t)
	gauge := &countingGauge{}

	p, err := New(Config{SocketPath: sockPath, NetworkMagic: 764824073, MaxSize: 2, Gauge: gauge})
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	handle, err := p.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, handle.Conn())
	assert.Equal(t, 1, gauge.inc)

	handle.Release()

	handle2, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, gauge.inc, "recycled connection should not re-create")
	handle2.Release()
}

func TestPoolRejectsNonPositiveMaxSize(t *testing.T) {
	_, err := New(Config{SocketPath: "/nonexistent", MaxSize: 0})
	assert.Error(t, err)
}

func TestPoolGetFailsWhenSocketMissing(t *testing.T) {
	p, err := New(Config{SocketPath: filepath.Join(os.TempDir(), "does-not-exist.socket"), MaxSize: 1})
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err = p.Get(ctx)
	assert.Error(t, err)
}
