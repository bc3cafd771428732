package n2c

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// N2C protocol versions this gateway proposes. Real nodes pick the highest
// one both sides support.
var proposedVersions = []uint16{9, 10, 11, 12, 13}

const (
	msgProposeVersions = 0
	msgAcceptVersion   = 1
	msgRefuse          = 2
)

// versionData is what each proposed version maps to: the network magic plus
// the "query" flag (false for a normal client).
type versionData struct {
	NetworkMagic uint64
	Query        bool
}

// Handshake runs the N2C handshake mini-protocol to completion, proposing
// every version we support and failing if the node refuses all of them.
func Handshake(mux *Mux, networkMagic uint64) error {
	inbox := mux.Register(ProtocolHandshake)

	versions := map[uint16]versionData{}
	for _, v := range proposedVersions {
		versions[v] = versionData{NetworkMagic: networkMagic, Query: false}
	}

	msg := []any{msgProposeVersions, versions}
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return fmt.Errorf("n2c handshake: encoding proposal: %w", err)
	}
	if err := mux.Send(ProtocolHandshake, true, payload); err != nil {
		return fmt.Errorf("n2c handshake: sending proposal: %w", err)
	}

	var reply []byte
	select {
	case reply = <-inbox:
	case <-mux.Done():
		return fmt.Errorf("n2c handshake: connection closed before reply: %w", mux.Err())
	}

	var frame []any
	if err := cbor.Unmarshal(reply, &frame); err != nil || len(frame) == 0 {
		return fmt.Errorf("n2c handshake: malformed reply")
	}

	tag, ok := frame[0].(uint64)
	if !ok {
		if i, ok2 := frame[0].(int64); ok2 {
			tag = uint64(i)
		} else {
			return fmt.Errorf("n2c handshake: unexpected reply tag type")
		}
	}

	switch tag {
	case msgAcceptVersion:
		return nil
	case msgRefuse:
		return fmt.Errorf("n2c handshake: node refused all proposed versions: %v", frame[1:])
	default:
		return fmt.Errorf("n2c handshake: unexpected message tag %d", tag)
	}
}
