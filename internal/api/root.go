package api

import (
	"encoding/json"
	"net/http"

	"github.com/blockfrost/node-gateway/internal/apperrors"
	"github.com/blockfrost/node-gateway/internal/syncx"
	"github.com/blockfrost/node-gateway/pkg/types"
)

// gatewayVersion is set at build time via -ldflags in release builds.
var gatewayVersion = "dev"

// rootHandler serves GET /: fetch the current sync progress and report
// healthy iff that query succeeded.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apperrors.MethodNotAllowed())
		return
	}

	handle, err := s.pool.Get(r.Context())
	if err != nil {
		writeRoot(w, false, nil, []string{err.Error()})
		return
	}
	defer handle.Release()

	progress, err := syncx.Compute(r.Context(), handle.Conn())
	if err != nil {
		writeRoot(w, false, nil, []string{err.Error()})
		return
	}

	writeRoot(w, true, progress, []string{})
}

// notFoundHandler serves every path under the prefix that isn't one of the
// registered routes.
func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, apperrors.NotFound())
}

func writeRoot(w http.ResponseWriter, healthy bool, progress *syncx.Progress, errs []string) {
	resp := types.RootResponse{
		Name:         "blockfrost-platform",
		Version:      gatewayVersion,
		Healthy:      healthy,
		SyncProgress: progress,
		Errors:       errs,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
