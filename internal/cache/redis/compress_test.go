package redis

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	payload := []byte(`{"mint":"So11111111111111111111111111111111111111112","price":"142.37"}`)

	packed, err := compress(payload)
	require.NoError(t, err)

	unpacked, err := decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, payload, unpacked)
}

func TestCompressShrinksRepetitivePayloads(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"h":"1.0","l":"0.9","c":"0.95"},`), 200)

	packed, err := compress(payload)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(payload))
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := decompress([]byte("not gzip data"))
	assert.Error(t, err)
}
