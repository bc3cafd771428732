// Package types holds the wire-level JSON shapes the HTTP surface exchanges
// with clients, kept separate from package internals.
package types

import "github.com/blockfrost/node-gateway/internal/syncx"

// RootResponse is the body GET / returns.
type RootResponse struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Healthy      bool            `json:"healthy"`
	SyncProgress *syncx.Progress `json:"sync_progress"`
	Errors       []string        `json:"errors"`
}
