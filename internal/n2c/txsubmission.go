package n2c

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// LocalTxSubmission message tags.
const (
	msgSubmitTx = 0
	msgAccepted = 1
	msgRejected = 2
)

// EraTx pairs a transaction's era tag with its raw CBOR bytes, the wire shape
// the node's LocalTxSubmission mini-protocol expects.
type EraTx struct {
	Era   uint16
	Bytes []byte
}

// SubmitResult is either Accepted or Rejected(reason bytes).
type SubmitResult struct {
	Accepted bool
	Reason   []byte
}

// TxSubmissionClient wraps the local tx submission mini-protocol.
type TxSubmissionClient struct {
	mux   *Mux
	inbox chan []byte
}

func newTxSubmissionClient(mux *Mux) *TxSubmissionClient {
	return &TxSubmissionClient{mux: mux, inbox: mux.Register(ProtocolLocalTxSubmission)}
}

func (c *TxSubmissionClient) SubmitTx(tx EraTx) (SubmitResult, error) {
	payload, err := cbor.Marshal([]any{msgSubmitTx, []any{tx.Era, tx.Bytes}})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("n2c tx submission: encoding request: %w", err)
	}
	if err := c.mux.Send(ProtocolLocalTxSubmission, true, payload); err != nil {
		return SubmitResult{}, fmt.Errorf("n2c tx submission: sending request: %w", err)
	}

	var reply []byte
	select {
	case reply = <-c.inbox:
	case <-c.mux.Done():
		return SubmitResult{}, fmt.Errorf("n2c tx submission: connection closed: %w", c.mux.Err())
	}

	var frame []any
	if err := cbor.Unmarshal(reply, &frame); err != nil || len(frame) == 0 {
		return SubmitResult{}, fmt.Errorf("n2c tx submission: malformed reply")
	}

	switch {
	case tagEquals(frame[0], msgAccepted):
		return SubmitResult{Accepted: true}, nil
	case tagEquals(frame[0], msgRejected):
		if len(frame) < 2 {
			return SubmitResult{}, fmt.Errorf("n2c tx submission: rejected without a reason")
		}
		reason, ok := frame[1].([]byte)
		if !ok {
			return SubmitResult{}, fmt.Errorf("n2c tx submission: rejection reason not bytes")
		}
		return SubmitResult{Accepted: false, Reason: reason}, nil
	default:
		return SubmitResult{}, fmt.Errorf("n2c tx submission: unexpected reply tag")
	}
}
