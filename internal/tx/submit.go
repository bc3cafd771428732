// Package tx implements the transaction submission pipeline: hex-decode,
// hash, discover era, submit, and translate the node's verdict into an
// HTTP-shaped outcome.
package tx

import (
	"context"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/blockfrost/node-gateway/internal/apperrors"
	"github.com/blockfrost/node-gateway/internal/cborx"
	"github.com/blockfrost/node-gateway/internal/n2c"
	"github.com/blockfrost/node-gateway/internal/pool"
)

// Result carries the accepted transaction's id, hex-encoded, matching the
// reference API's txid response body.
type Result struct {
	TxID string `json:"txid"`
}

// Submit runs the pipeline against hexTx, the request body decoded as a hex
// string. On rejection the returned error is an *apperrors.RejectedTx
// carrying the decoded rejection-reason envelope, to be written to the
// client verbatim.
func Submit(ctx context.Context, p *pool.Pool, fb cborx.FallbackDecoder, hexTx string) (*Result, error) {
	raw, err := hex.DecodeString(hexTx)
	if err != nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid hex: %s", err))
	}
	if len(raw) == 0 {
		return nil, apperrors.BadRequest("empty transaction body")
	}

	hash := blake2b.Sum256(raw)
	txid := hex.EncodeToString(hash[:])

	handle, err := p.Get(ctx)
	if err != nil {
		return nil, apperrors.InternalServerError(err.Error())
	}
	defer handle.Release()

	conn := handle.Conn()

	eraResult, err := conn.WithStateQuery(func(q *n2c.StateQueryClient) (any, error) {
		return q.CurrentEra()
	})
	if err != nil {
		return nil, apperrors.InternalServerError(fmt.Sprintf("era discovery failed: %s", err))
	}
	era, _ := eraResult.(uint16)

	result, err := conn.SubmitTx(n2c.EraTx{Era: era, Bytes: raw})
	if err != nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("error during transaction submission: %s", err))
	}

	if result.Accepted {
		return &Result{TxID: txid}, nil
	}

	envelope, decodeErr := cborx.Decode(result.Reason, fb)
	if decodeErr != nil {
		return nil, apperrors.FallbackTerminal(decodeErr.Error())
	}
	return nil, &apperrors.RejectedTx{Envelope: envelope}
}
