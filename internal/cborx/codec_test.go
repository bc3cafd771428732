package cborx

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// TestDecodeTwoErrorNative decodes a rejection reason carrying two Conway
// predicate failures under one ShelleyTxValidationError.
func TestDecodeTwoErrorNative(t *testing.T) {
	raw := mustDecodeHex(t, "8202818206828201820083061b00000002362a77301b0000000253b9c11d8201820083051a00028bfd18ad")

	c := newCursor(raw)
	parsed, err := decodeTxValidationError(c)
	require.NoError(t, err)

	assert.Equal(t, "ShelleyTxValidationError", parsed.Kind)
	assert.Equal(t, EraConway, parsed.Era)
	assert.Len(t, parsed.Errors, 2)
	for _, e := range parsed.Errors {
		assert.NotEmpty(t, e.String())
	}
}

func TestShelleyBasedEraUnknownTagErrors(t *testing.T) {
	raw := mustDecodeHex(t, "8207") // array(2) header then tag 7: out of range
	c := newCursor(raw)
	_, err := c.decodeShelleyBasedEra()
	assert.Error(t, err)
}

func TestConwayTreasuryValueMismatchRenders(t *testing.T) {
	e := &ApplyConwayTxPredError{tag: 5, coin: Coin(796507)}
	assert.Equal(t, "TreasuryValueMismatch (Coin 796507)", e.String())
}

func TestConwayUtxowFailureValueNotConservedRenders(t *testing.T) {
	inner := &ConwayUtxoPredFailure{
		tag:    6,
		valueA: Value{Coin: Coin(9498687280)},
		valueB: Value{Coin: Coin(9994617117)},
	}
	w := &ConwayUtxoWPredFailure{tag: 0, utxo: inner}
	e := &ApplyConwayTxPredError{tag: 1, utxow: w}

	assert.Contains(t, e.String(), "UtxowFailure (UtxoFailure (ValueNotConservedUTxO")
	assert.Contains(t, e.String(), "Coin 9498687280")
	assert.Contains(t, e.String(), "Coin 9994617117")
}

type stubFallback struct {
	value json.RawMessage
	err   error
}

func (s stubFallback) Decode(cbor []byte) (json.RawMessage, error) { return s.value, s.err }

func TestDecodeRoutesNativeFailureToFallback(t *testing.T) {
	raw := mustDecodeHex(t, "068182028200a0") // after the 2-byte prefix, a uint sits where the era array belongs: native fails
	fb := stubFallback{value: []byte(`{"tag":"fromFallback"}`)}

	out, err := Decode(raw, fb)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"fromFallback"}`, string(out))
}
