package n2c

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// LocalStateQuery message tags.
const (
	msgAcquire  = 0
	msgAcquired = 1
	msgFailure  = 2
	msgQuery    = 3
	msgResult   = 4
	msgRelease  = 5
)

// ChainPoint is either the origin or a specific (slot, block hash) pair.
type ChainPoint struct {
	Origin bool
	Slot   uint64
	Block  []byte
}

// GenesisEntry is the subset of get_genesis_config fields the sync-progress
// aggregator needs.
type GenesisEntry struct {
	NetworkMagic uint64
}

// SystemStart is the node's configured system start time.
type SystemStart struct {
	Year             int64
	DayOfYear        int64
	PicosecondsOfDay int64
}

// StateQueryClient is the "acquired" sub-client for one acquire/release
// window. The acquire-is-always-released guarantee lives in
// NodeClient.WithStateQuery, not here; this type only does the wire work.
type StateQueryClient struct {
	mux   *Mux
	inbox chan []byte
}

func newStateQueryClient(mux *Mux) *StateQueryClient {
	return &StateQueryClient{mux: mux, inbox: mux.Register(ProtocolLocalStateQuery)}
}

func (c *StateQueryClient) recv() ([]byte, error) {
	select {
	case b := <-c.inbox:
		return b, nil
	case <-c.mux.Done():
		return nil, fmt.Errorf("n2c state query: connection closed: %w", c.mux.Err())
	}
}

// Acquire acquires the tip (no explicit point), as both the pool's liveness
// probe and the sync-progress window do.
func (c *StateQueryClient) Acquire() error {
	payload, err := cbor.Marshal([]any{msgAcquire})
	if err != nil {
		return err
	}
	if err := c.mux.Send(ProtocolLocalStateQuery, true, payload); err != nil {
		return err
	}
	reply, err := c.recv()
	if err != nil {
		return err
	}
	var frame []any
	if err := cbor.Unmarshal(reply, &frame); err != nil || len(frame) == 0 {
		return fmt.Errorf("n2c state query: malformed acquire reply")
	}
	if tagEquals(frame[0], msgFailure) {
		return fmt.Errorf("n2c state query: acquire failed: %v", frame[1:])
	}
	return nil
}

// Release releases the previously acquired state. It must be called on every
// exit path from an acquire; callers invoke it through NodeClient.WithStateQuery.
func (c *StateQueryClient) Release() error {
	payload, err := cbor.Marshal([]any{msgRelease})
	if err != nil {
		return err
	}
	return c.mux.Send(ProtocolLocalStateQuery, true, payload)
}

func (c *StateQueryClient) query(q any) (any, error) {
	payload, err := cbor.Marshal([]any{msgQuery, q})
	if err != nil {
		return nil, err
	}
	if err := c.mux.Send(ProtocolLocalStateQuery, true, payload); err != nil {
		return nil, err
	}
	reply, err := c.recv()
	if err != nil {
		return nil, err
	}
	var frame []any
	if err := cbor.Unmarshal(reply, &frame); err != nil || len(frame) < 2 {
		return nil, fmt.Errorf("n2c state query: malformed result")
	}
	if !tagEquals(frame[0], msgResult) {
		return nil, fmt.Errorf("n2c state query: unexpected reply tag")
	}
	return frame[1], nil
}

func tagEquals(v any, want int) bool {
	switch x := v.(type) {
	case uint64:
		return x == uint64(want)
	case int64:
		return x == int64(want)
	default:
		return false
	}
}

// Query tags for the five queries the sync-progress aggregator issues.
const (
	queryCurrentEra       = 0
	queryBlockEpochNumber = 1
	queryGenesisConfig    = 2
	querySystemStart      = 3
	queryChainPoint       = 4
)

func (c *StateQueryClient) CurrentEra() (uint16, error) {
	result, err := c.query([]any{queryCurrentEra})
	if err != nil {
		return 0, err
	}
	return toUint16(result)
}

func (c *StateQueryClient) BlockEpochNumber(era uint16) (uint32, error) {
	result, err := c.query([]any{queryBlockEpochNumber, era})
	if err != nil {
		return 0, err
	}
	n, err := toUint64(result)
	return uint32(n), err
}

func (c *StateQueryClient) GenesisConfig(era uint16) ([]GenesisEntry, error) {
	result, err := c.query([]any{queryGenesisConfig, era})
	if err != nil {
		return nil, err
	}
	list, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("n2c state query: genesis config: unexpected shape")
	}
	entries := make([]GenesisEntry, 0, len(list))
	for _, item := range list {
		magic, err := toUint64(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, GenesisEntry{NetworkMagic: magic})
	}
	return entries, nil
}

func (c *StateQueryClient) SystemStart() (SystemStart, error) {
	result, err := c.query([]any{querySystemStart})
	if err != nil {
		return SystemStart{}, err
	}
	triple, ok := result.([]any)
	if !ok || len(triple) != 3 {
		return SystemStart{}, fmt.Errorf("n2c state query: system start: unexpected shape")
	}
	year, err := toInt64(triple[0])
	if err != nil {
		return SystemStart{}, err
	}
	day, err := toInt64(triple[1])
	if err != nil {
		return SystemStart{}, err
	}
	ps, err := toInt64(triple[2])
	if err != nil {
		return SystemStart{}, err
	}
	return SystemStart{Year: year, DayOfYear: day, PicosecondsOfDay: ps}, nil
}

func (c *StateQueryClient) GetChainPoint() (ChainPoint, error) {
	result, err := c.query([]any{queryChainPoint})
	if err != nil {
		return ChainPoint{}, err
	}
	pair, ok := result.([]any)
	if !ok || len(pair) == 0 {
		return ChainPoint{}, fmt.Errorf("n2c state query: chain point: unexpected shape")
	}
	if tagEquals(pair[0], 0) {
		return ChainPoint{Origin: true}, nil
	}
	if len(pair) != 3 {
		return ChainPoint{}, fmt.Errorf("n2c state query: chain point: unexpected shape")
	}
	slot, err := toUint64(pair[1])
	if err != nil {
		return ChainPoint{}, err
	}
	block, ok := pair[2].([]byte)
	if !ok {
		return ChainPoint{}, fmt.Errorf("n2c state query: chain point: block not bytes")
	}
	return ChainPoint{Slot: slot, Block: block}, nil
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case int64:
		return uint64(x), nil
	default:
		return 0, fmt.Errorf("n2c state query: expected an integer, got %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case uint64:
		return int64(x), nil
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("n2c state query: expected an integer, got %T", v)
	}
}

func toUint16(v any) (uint16, error) {
	n, err := toUint64(v)
	return uint16(n), err
}
