package n2c

import (
	"fmt"
	"net"
)

// NodeClient wraps the raw mini-protocol clients so that every acquire of
// the state-query sub-client is matched by a release on every exit path,
// including when the caller's action itself fails.
type NodeClient struct {
	conn net.Conn
	mux  *Mux

	submission *TxSubmissionClient

	onReleaseErr func(error)
}

// Connect dials the node's local socket, runs the handshake, and returns a
// ready client.
func Connect(socketPath string, networkMagic uint64) (*NodeClient, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("n2c: dialing %s: %w", socketPath, err)
	}

	mux := NewMux(conn)
	if err := Handshake(mux, networkMagic); err != nil {
		mux.Abort()
		return nil, err
	}

	return &NodeClient{
		conn:       conn,
		mux:        mux,
		submission: newTxSubmissionClient(mux),
	}, nil
}

// WithStateQuery acquires the state-query sub-client, runs action, and
// releases unconditionally, on success and on action error alike. Panic
// recovery is intentionally not attempted: a panic should crash loudly, and
// the deferred release still runs while unwinding.
func (c *NodeClient) WithStateQuery(action func(*StateQueryClient) (any, error)) (any, error) {
	client := newStateQueryClient(c.mux)

	if err := client.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := client.Release(); err != nil {
			if c.onReleaseErr != nil {
				c.onReleaseErr(err)
			}
		}
	}()

	return action(client)
}

// Ping is a cheap liveness probe used by the pool's recycle step: acquire
// the tip and release immediately.
func (c *NodeClient) Ping() error {
	_, err := c.WithStateQuery(func(*StateQueryClient) (any, error) {
		return nil, nil
	})
	return err
}

// SubmitTx wraps the submission sub-client with a single call returning
// either Accepted or Rejected(bytes).
func (c *NodeClient) SubmitTx(tx EraTx) (SubmitResult, error) {
	return c.submission.SubmitTx(tx)
}

// OnReleaseError registers a callback invoked (not returned) when a release
// fails; a release error never overrides the action's own outcome.
func (c *NodeClient) OnReleaseError(fn func(error)) {
	c.onReleaseErr = fn
}

// Abort is the ownership-consuming teardown: it joins the multiplexer's
// goroutine. Callers must not use the client afterwards.
func (c *NodeClient) Abort() {
	c.mux.Abort()
}
