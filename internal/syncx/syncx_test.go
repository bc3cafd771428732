package syncx

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockfrost/node-gateway/internal/n2c"
)

// serveSyncFakeNode answers the five-query window with canned, internally
// consistent values: mainnet genesis, and either a chain tip slot very close
// to "now" or the origin point, depending on origin.
func serveSyncFakeNode(t *testing.T, conn net.Conn, tipSlot uint64, origin bool) {
	t.Helper()
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
			case 3: // query
				reply, _ = cbor.Marshal([]any{4, handleQuery(frame[1], tipSlot, origin)})
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

func handleQuery(q any, tipSlot uint64, origin bool) any {
	arr, _ := q.([]any)
	if len(arr) == 0 {
		return nil
	}
	tag, _ := arr[0].(uint64)
	switch tag {
	case 0: // current era
		return uint16(6)
	case 1: // block epoch number
		return uint32(500)
	case 2: // genesis config
		return []any{uint64(764824073)}
	case 3: // system start
		return []any{int64(2020), int64(1), int64(0)}
	case 4: // chain point
		if origin {
			return []any{uint64(0)}
		}
		return []any{uint64(1), tipSlot, []byte{0xde, 0xad, 0xbe, 0xef}}
	default:
		return nil
	}
}

func dialFakeNode(t *testing.T, tipSlot uint64, origin bool) *n2c.NodeClient {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "node.socket")

	l, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		serveSyncFakeNode(t, conn, tipSlot, origin)
	}()

	client, err := n2c.Connect(sockPath, 764824073)
	require.NoError(t, err)
	t.Cleanup(client.Abort)
	return client
}

func TestComputeFullySyncedWithinTolerance(t *testing.T) {
	// mainnet shelley genesis anchor + a tiny offset so the slot's wallclock
	// sits inside the 60s tolerance window of "now".
	now := time.Now().UTC()
	elapsedSinceShelleyGenesis := now.Unix() - 1596059091
	tipSlot := uint64(4492800 + elapsedSinceShelleyGenesis)

	client := dialFakeNode(t, tipSlot, false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	progress, err := Compute(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 1.0, progress.Percentage)
	assert.Equal(t, uint16(6), progress.Era)
	assert.Equal(t, uint32(500), progress.Epoch)
	assert.Equal(t, "deadbeef", progress.Block)
}

func TestComputeOriginChainPointHasEmptyBlock(t *testing.T) {
	client := dialFakeNode(t, 0, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	progress, err := Compute(ctx, client)
	require.NoError(t, err)
	assert.Empty(t, progress.Block)
	assert.Equal(t, uint64(0), progress.Slot)
}
