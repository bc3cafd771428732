package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/blockfrost/node-gateway/internal/apperrors"
	"github.com/blockfrost/node-gateway/internal/tx"
)

// requiredContentType is the POST /tx/submit media-type contract. A single
// named constant so switching to a raw-bytes body later touches this file
// only, not the submission pipeline.
const requiredContentType = "application/cbor"

// txSubmitHandler serves POST /tx/submit: the body is the hex-encoded
// transaction text itself, run through the submission pipeline, reporting
// the txid or rejection.
func (s *Server) txSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.MethodNotAllowed())
		return
	}

	if r.Header.Get("Content-Type") != requiredContentType {
		writeError(w, apperrors.BadRequest(`Content-Type must be: "application/cbor"`))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperrors.BadRequest("failed to read request body"))
		return
	}

	result, err := tx.Submit(r.Context(), s.pool, s.fallback, strings.TrimSpace(string(body)))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result.TxID)
}
