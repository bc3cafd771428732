package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/blockfrost/node-gateway/internal/apperrors"
	"github.com/blockfrost/node-gateway/internal/logging"
)

type requestIDKey struct{}

// requestIDMiddleware stamps every request with a correlation id so a
// client-reported problem can be traced back through this gateway's logs.
// Not part of the client-facing contract, so it stays request-scoped rather
// than echoed back in a response header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// statusRecorder captures the status code and body a handler wrote so the
// error middleware can inspect and, for 5xx, rewrite them. net/http has no
// response-interception primitive of its own, hence the buffer.
type statusRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.wrote = true
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	return r.body.Write(b)
}

// errorMiddleware normalizes status codes and logs 5xx bodies: a 504 is
// rewritten to 500, a 405 to 400, and any 5xx is logged with its request
// path before the client-facing body is replaced by the generic error
// document.
func errorMiddleware(log *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		switch rec.status {
		case http.StatusMethodNotAllowed:
			apperrors.MethodNotAllowed().WriteJSON(w)
			return
		}

		if rec.status >= 500 {
			reqID := requestIDFrom(r.Context())
			var parsed apperrors.GatewayError
			if err := json.Unmarshal(rec.body.Bytes(), &parsed); err == nil && parsed.Message != "" {
				log.Errorf("[%s] %d in `%s` message: `%s`", reqID, rec.status, r.URL.Path, parsed.Message)
			} else {
				log.Errorf("[%s] %d in `%s`: failed to parse error body: %s", reqID, rec.status, r.URL.Path, rec.body.String())
			}
			apperrors.InternalServerErrorUser().WriteJSON(w)
			return
		}

		if rec.wrote {
			w.WriteHeader(rec.status)
		}
		_, _ = w.Write(rec.body.Bytes())
	})
}

// metricsMiddleware increments http_requests_total{method,path,status} for
// every served request. path is the route pattern supplied by the caller
// (the matched mux pattern), falling back to the raw request path when no
// pattern is known.
func metricsMiddleware(m *Metrics, pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		path := pattern
		if path == "" {
			path = r.URL.Path
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()

		if rec.wrote {
			w.WriteHeader(rec.status)
		}
		_, _ = w.Write(rec.body.Bytes())
	})
}

func writeError(w http.ResponseWriter, err error) {
	if ge, ok := err.(*apperrors.GatewayError); ok {
		ge.WriteJSON(w)
		return
	}
	if rj, ok := err.(*apperrors.RejectedTx); ok {
		rj.WriteJSON(w)
		return
	}
	apperrors.InternalServerError(err.Error()).WriteJSON(w)
}
