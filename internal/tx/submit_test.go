package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockfrost/node-gateway/internal/apperrors"
)

func TestSubmitRejectsOddLengthHex(t *testing.T) {
	_, err := Submit(context.Background(), nil, nil, "abc")
	require.Error(t, err)

	ge, ok := err.(*apperrors.GatewayError)
	require.True(t, ok)
	assert.Equal(t, 400, ge.StatusCode)
	assert.Contains(t, ge.Message, "invalid hex")
}

func TestSubmitRejectsNonHexBody(t *testing.T) {
	_, err := Submit(context.Background(), nil, nil, "zz")
	require.Error(t, err)

	ge, ok := err.(*apperrors.GatewayError)
	require.True(t, ok)
	assert.Equal(t, 400, ge.StatusCode)
}

func TestSubmitRejectsEmptyBody(t *testing.T) {
	_, err := Submit(context.Background(), nil, nil, "")
	require.Error(t, err)

	ge, ok := err.(*apperrors.GatewayError)
	require.True(t, ok)
	assert.Equal(t, 400, ge.StatusCode)
	assert.Contains(t, ge.Message, "empty transaction body")
}
