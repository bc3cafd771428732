package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockfrost/node-gateway/internal/apperrors"
	"github.com/blockfrost/node-gateway/internal/logging"
)

// TestErrorMiddlewareRewrites504To500 checks that a handler returning 504
// is observed by the client as 500 with the generic body.
func TestErrorMiddlewareRewrites504To500(t *testing.T) {
	log := logging.New(logging.LevelError)
	handler := errorMiddleware(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body apperrors.GatewayError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "An unexpected response was received from the backend.", body.Message)
}

// TestErrorMiddlewareRewrites405To400 checks that a handler returning 405
// is observed as 400 with the "Invalid path" message.
func TestErrorMiddlewareRewrites405To400(t *testing.T) {
	log := logging.New(logging.LevelError)
	handler := errorMiddleware(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.GatewayError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "Invalid path")
}

// TestErrorMiddlewareHidesInternalDetail ensures a 5xx body that parses as
// the gateway's error document never leaks its detail to the client: the
// client always receives the generic 500 body.
func TestErrorMiddlewareHidesInternalDetail(t *testing.T) {
	log := logging.New(logging.LevelError)
	handler := errorMiddleware(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apperrors.InternalServerError("some sensitive backend detail").WriteJSON(w)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sensitive backend detail")
}

// TestErrorMiddlewarePassesThroughSuccess checks that non-5xx, non-rewritten
// responses pass through unchanged.
func TestErrorMiddlewarePassesThroughSuccess(t *testing.T) {
	log := logging.New(logging.LevelError)
	handler := errorMiddleware(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`"ok"`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"ok"`, rec.Body.String())
}

// TestTxSubmitRequiresContentType checks that POST /tx/submit without
// application/cbor returns 400 with the documented message.
func TestTxSubmitRequiresContentType(t *testing.T) {
	s := New(Config{Log: logging.New(logging.LevelError)})

	req := httptest.NewRequest(http.MethodPost, "/tx/submit", nil)
	rec := httptest.NewRecorder()
	s.txSubmitHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.GatewayError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, `Content-Type must be: "application/cbor"`, body.Message)
}

// TestRouterNestsUnderPrefix checks that all routes are served under the
// registry-reported prefix.
func TestRouterNestsUnderPrefix(t *testing.T) {
	s := New(Config{Log: logging.New(logging.LevelError)})

	router := s.Router("/my-instance")

	req := httptest.NewRequest(http.MethodPost, "/my-instance/tx/submit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, "nested route should still reach the handler")
}

// TestRequestIDMiddlewareStampsUniqueIDs checks that every request gets its
// own correlation id, visible downstream via requestIDFrom.
func TestRequestIDMiddlewareStampsUniqueIDs(t *testing.T) {
	var seen []string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, requestIDFrom(r.Context()))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.NotEmpty(t, seen[1])
	assert.NotEqual(t, seen[0], seen[1])
}

// TestWriteErrorWritesRejectionEnvelopeRaw checks that the /tx/submit
// rejection body is the decoded envelope itself, not a string nested inside
// the generic GatewayError wrapper.
func TestWriteErrorWritesRejectionEnvelopeRaw(t *testing.T) {
	envelope := json.RawMessage(`{"tag":"TxSubmitFail","contents":{"tag":"TxCmdTxSubmitValidationError","contents":{"tag":"TxValidationErrorInCardanoMode","contents":{"kind":"ShelleyTxValidationError","era":"ShelleyBasedEraConway","error":["some reason"]}}}}`)

	rec := httptest.NewRecorder()
	writeError(rec, &apperrors.RejectedTx{Envelope: envelope})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Tag      string `json:"tag"`
		Contents struct {
			Tag string `json:"tag"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TxSubmitFail", body.Tag)
	assert.Equal(t, "TxCmdTxSubmitValidationError", body.Contents.Tag)
	assert.JSONEq(t, string(envelope), rec.Body.String())
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "/", normalizePrefix(""))
	assert.Equal(t, "/foo", normalizePrefix("/foo/"))
	assert.Equal(t, "/foo", normalizePrefix("foo"))
}
