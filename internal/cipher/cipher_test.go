package cipher

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) Key {
	t.Helper()
	var b [KeySize]byte
	_, err := rand.Read(b[:])
	require.NoError(t, err)
	return Key(b)
}

func TestDefaultKeyBytes(t *testing.T) {
	// The shared secret must match the vendor tooling bit for bit.
	assert.Equal(t, "91bd7a0aa75440a9bbd49d6ce0dcc0e3", hex.EncodeToString(DefaultKey[:]))
}

func TestNewKey(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr bool
	}{
		{name: "exact size", input: bytes.Repeat([]byte{0xAB}, KeySize)},
		{name: "too short", input: make([]byte, 8), wantErr: true},
		{name: "too long", input: make([]byte, 24), wantErr: true},
		{name: "empty", input: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewKey(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrKeySize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, k[:])
		})
	}
}

func TestTransformBlock_DegenerateBlocks(t *testing.T) {
	key := newTestKey(t)

	empty := TransformBlock([]uint32{}, key, true)
	assert.Empty(t, empty)

	single := TransformBlock([]uint32{0xDEADBEEF}, key, true)
	assert.Equal(t, []uint32{0xDEADBEEF}, single)

	single = TransformBlock([]uint32{0xDEADBEEF}, key, false)
	assert.Equal(t, []uint32{0xDEADBEEF}, single)
}

func TestTransformBlock_Involution(t *testing.T) {
	key := newTestKey(t)

	for _, n := range []int{2, 3, 4, 8, 13, 64, 128} {
		original := make([]uint32, n)
		for i := range original {
			original[i] = uint32(i * 0x01010101)
		}

		work := make([]uint32, n)
		copy(work, original)

		TransformBlock(work, key, true)
		assert.NotEqual(t, original, work, "block of %d words must change under encryption", n)

		TransformBlock(work, key, false)
		assert.Equal(t, original, work, "block of %d words must survive the round trip", n)
	}
}

func TestEncryptDecryptBytes_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "two words", size: 8},
		{name: "three words", size: 12},
		{name: "key sized", size: 16},
		{name: "check token sized", size: 64},
		{name: "list index prefix", size: 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := newTestKey(t)
			data := make([]byte, tt.size)
			_, err := rand.Read(data)
			require.NoError(t, err)

			ct := EncryptBytes(data, key)
			require.Len(t, ct, tt.size)
			assert.NotEqual(t, data, ct)

			pt := DecryptBytes(ct, key)
			assert.Equal(t, data, pt)
		})
	}
}

func TestEncryptBytes_PadsPartialWord(t *testing.T) {
	key := newTestKey(t)
	data := []byte{1, 2, 3, 4, 5, 6, 7} // 7 bytes -> two words, last padded

	ct := EncryptBytes(data, key)
	require.Len(t, ct, 8)

	pt := DecryptBytes(ct, key)
	require.Len(t, pt, 8)
	assert.Equal(t, data, pt[:7])
	assert.Equal(t, byte(0), pt[7], "pad byte must decrypt to zero")
}

func TestEncryptBytes_SubBlockPassesThrough(t *testing.T) {
	key := newTestKey(t)

	// Fewer than two words: the cipher leaves the block alone, but the
	// output is still padded to a whole word.
	out := EncryptBytes([]byte{0xAA, 0xBB}, key)
	assert.Equal(t, []byte{0xAA, 0xBB, 0, 0}, out)

	assert.Empty(t, EncryptBytes(nil, key))
}

func TestEncryptBytes_Deterministic(t *testing.T) {
	key := newTestKey(t)
	data := bytes.Repeat([]byte{0x5C}, 48)

	first := EncryptBytes(data, key)
	second := EncryptBytes(data, key)
	assert.Equal(t, first, second)
}

func TestEncryptBytes_KeyDependence(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 32)

	a := EncryptBytes(data, newTestKey(t))
	b := EncryptBytes(data, newTestKey(t))
	assert.NotEqual(t, a, b)
}

func TestDecryptBytes_DoesNotMutateInput(t *testing.T) {
	key := newTestKey(t)
	data := bytes.Repeat([]byte{0x17}, 16)
	saved := append([]byte(nil), data...)

	DecryptBytes(data, key)
	assert.Equal(t, saved, data)
}
