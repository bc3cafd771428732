package cborx

import (
	"encoding/json"

	"github.com/blockfrost/node-gateway/internal/fallback"
)

// FallbackDecoder is the subset of *fallback.Supervisor this package needs,
// so tests can substitute a stub instead of spawning a real subprocess.
type FallbackDecoder interface {
	Decode(cbor []byte) (json.RawMessage, error)
}

var _ FallbackDecoder = (*fallback.Supervisor)(nil)

// Decode tries the native decoder against the buffer with its 2-byte
// framing prefix skipped, and on any failure (an unknown tag, a malformed
// field, or simply a shape this decoder doesn't cover) hands the full,
// unskipped buffer to the fallback supervisor. A decode error from the
// native path is expected routing, not a failure to report upward.
func Decode(raw []byte, fb FallbackDecoder) (json.RawMessage, error) {
	if len(raw) >= 2 {
		native, err := decodeNative(raw[2:])
		if err == nil {
			return native, nil
		}
	}
	return fb.Decode(raw)
}

func decodeNative(buf []byte) (json.RawMessage, error) {
	c := newCursor(buf)
	parsed, err := decodeTxValidationError(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(buildEnvelope(parsed))
}

// buildEnvelope produces the nested {tag, contents} shape:
// TxSubmitFail -> TxCmdTxSubmitValidationError ->
// TxValidationErrorInCardanoMode -> {kind, era, error: [...]}.
func buildEnvelope(v *TxValidationError) map[string]any {
	errStrings := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		errStrings[i] = e.String()
	}

	inner := map[string]any{
		"kind":  v.Kind,
		"error": errStrings,
	}
	if v.Kind == "ShelleyTxValidationError" {
		inner["era"] = v.Era.String()
	}

	return map[string]any{
		"tag": "TxSubmitFail",
		"contents": map[string]any{
			"tag": "TxCmdTxSubmitValidationError",
			"contents": map[string]any{
				"tag":      "TxValidationErrorInCardanoMode",
				"contents": inner,
			},
		},
	}
}
